// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for colab-llm.
//
// Configuration is read from a TOML file, then environment variables, then
// command-line flags (applied by the cli package), each layer overriding
// the previous one. Missing values fall back to built-in defaults.
//
// # File Location
//
//   - ~/.colab-llm/config.toml (or the path given with --config)
//
// # Environment Variables
//
//   - COLAB_LLM_ENDPOINT: server.endpoint
//   - COLAB_LLM_MODEL: generation.model
//   - COLAB_LLM_SYSTEM_PROMPT: generation.system_prompt
//   - COLAB_LLM_LOG_LEVEL: logging.level
//   - COLAB_LLM_EXPORT_DIR: export.dir
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	sess := chat.NewSession(cfg.ChatSettings())
//
// Watch reloads the file when it changes on disk:
//
//	w, err := config.NewWatcher(path, 200*time.Millisecond, func(cfg *config.Config, err error) {
//	    ...
//	})
//	defer w.Close()
package config
