// SPDX-License-Identifier: MIT
package routing

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// runCommand runs name with args and returns its trimmed-free stdout. Stderr
// is captured into the returned error for diagnostics.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %v: %w: %s", name, args, err, stderr.String())
	}
	return stdout.String(), nil
}
