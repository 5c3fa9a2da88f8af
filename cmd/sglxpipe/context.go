package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sglxpipe/internal/config"
)

// skipConfigAnnotation marks commands that must run without a loadable config.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext loads the configuration once per invocation and shares it
// between subcommands.
type commandContext struct {
	configFlag *string

	once       sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	err        error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		flag := ""
		if c.configFlag != nil {
			flag = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configPath, c.configSeen, c.err = config.Load(flag)
		if c.err != nil {
			c.err = fmt.Errorf("load config: %w", c.err)
		}
	})
	return c.config, c.err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
