// Package runner provides the default agent runner used by the API binary.
// It shells out to an external agent command, feeding the step request as
// JSON on stdin and reading the step output as JSON from stdout.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/atrox/maestro/pkg/engine"
)

type commandRunner struct {
	logger  *slog.Logger
	command string
	args    []string
}

// NewCommandRunner builds an AgentRunner around an external command line.
// The command string is split on whitespace; the first token is the binary.
func NewCommandRunner(logger *slog.Logger, command string) (engine.AgentRunner, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("agent command is empty")
	}

	r := &commandRunner{
		logger:  logger,
		command: fields[0],
		args:    fields[1:],
	}

	return r.run, nil
}

func (r *commandRunner) run(ctx context.Context, req engine.StepRequest) (map[string]any, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step request: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = bytes.NewReader(payload)

	if req.ProjectDirectory != "" {
		cmd.Dir = req.ProjectDirectory
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		r.logger.ErrorContext(ctx, "Agent command failed",
			"agent_id", req.AgentID, "task_id", req.TaskID, "stderr", stderr.String())

		return nil, fmt.Errorf("agent command failed: %w", err)
	}

	output := map[string]any{}

	if out := bytes.TrimSpace(stdout.Bytes()); len(out) > 0 {
		if err := json.Unmarshal(out, &output); err != nil {
			// Non-JSON output is kept verbatim rather than rejected.
			output = map[string]any{"raw": string(out)}
		}
	}

	return output, nil
}
