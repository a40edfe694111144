// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger used across colab-llm.
//
// Logs are JSON lines written to a size-rotated file (lumberjack). Nothing
// is written to the terminal, which belongs to the chat UI. Components get
// a child logger tagged with a "module" field:
//
//	log, err := logging.New(logging.Options{Level: "debug", File: path})
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//	logging.SetGlobal(log)
//
//	chatLog := logging.Named("chat")
//	chatLog.Info("exchange complete", zap.Int("tokens", n))
package logging
