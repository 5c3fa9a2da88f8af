// Package ecephys launches the Python processing modules (catGT_helper,
// kilosort_helper, the post-processing modules and tPrime_helper).
//
// Every module is invoked as `python -m <package>.<module> --input_json X
// --output_json Y`. Execution goes through an injectable Executor so tests can
// observe the argument vector without spawning processes. Output lines are
// streamed to a callback and logged at debug level.
package ecephys
