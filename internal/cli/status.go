// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
)

// StatusCommand probes the configured endpoint.
//
// Examples:
//
//	colab-llm status
//	colab-llm status -e http://127.0.0.1:11434 --json
type StatusCommand struct {
	app *App
}

// Execute runs the status command.
func (c *StatusCommand) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}

	_, prober := a.newSession()
	ctx, cancel := signalContext()
	defer cancel()

	st := prober.Probe(ctx, a.cfg.Server.Endpoint)

	if a.opts.JSON {
		result := StatusResult{
			Endpoint:   st.Endpoint,
			State:      st.State.String(),
			Message:    st.Message(),
			Version:    st.Version,
			StatusCode: st.StatusCode,
		}
		resp := NewJSONResponse("status", result)
		if !st.OK() {
			resp = NewJSONErrorResponseStr("status", st.Message(), result)
		}
		if err := resp.Write(a.stdout); err != nil {
			return err
		}
	} else {
		endpoint := st.Endpoint
		if endpoint == "" {
			endpoint = "(not set)"
		}
		fmt.Fprintln(a.stdout, RenderLabel("Endpoint:")+ValueStyle.Render(endpoint))
		fmt.Fprintln(a.stdout, RenderLabel("Model:")+ValueStyle.Render(a.cfg.Generation.Model))
		fmt.Fprintln(a.stdout, RenderLabel("Status:")+statusStyle(st).Render(st.Message()))
	}

	if !st.OK() {
		return &ExitError{Code: statusExitCode(st), Err: st.Err, Silent: true}
	}
	return nil
}
