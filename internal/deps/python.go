package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const importProbeTimeout = 30 * time.Second

// CheckModulePackage reports whether python can import the top-level package
// of modulePackage (e.g. ecephys_spike_sorting for
// ecephys_spike_sorting.modules).
func CheckModulePackage(ctx context.Context, python, modulePackage string) Status {
	root, _, _ := strings.Cut(strings.TrimSpace(modulePackage), ".")
	result := Status{
		Name:        "Module package",
		Command:     root,
		Description: "Python package providing the processing modules",
	}
	if root == "" {
		result.Detail = "module package not configured"
		return result
	}
	python = strings.TrimSpace(python)
	if python == "" {
		result.Detail = "python not configured"
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, importProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(probeCtx, python, "-c", "import "+root).CombinedOutput() //nolint:gosec
	if err != nil {
		detail := lastLine(string(out))
		if detail == "" {
			detail = err.Error()
		}
		result.Detail = fmt.Sprintf("import %s failed: %s", root, detail)
		return result
	}
	result.Available = true
	return result
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
