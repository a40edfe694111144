// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the conversation session: its settings, its
// transcript, the inference exchange and the server status probe.
//
// Shells (the TUI, the line REPL, the one-shot ask command) never talk to
// the Ollama client directly. They call Session.Submit or Session.Send and
// render the returned Reply, which always carries user-facing text, a
// metrics line (empty on failure) and a typed Outcome.
//
// # Exchange rules
//
//   - An empty or whitespace-only message, or an endpoint that does not
//     start with http:// or https://, is rejected before any request.
//   - The transcript grows by exactly one user turn and one assistant turn
//     on success, and is left untouched on any failure.
//   - Exchanges on one Session are serialized.
//
// # Usage
//
//	sess := chat.NewSession(chat.DefaultSettings(), chat.WithLogger(log))
//	reply := sess.Submit(ctx, "What is a goroutine?")
//	fmt.Println(reply.Text)
//	fmt.Println(reply.Metrics)
//
// The Prober reports whether the configured server answers /api/version:
//
//	prober := chat.NewProber(nil, 10*time.Second)
//	fmt.Println(prober.Probe(ctx, sess.Settings().Endpoint).Message())
package chat
