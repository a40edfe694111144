// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Only two endpoints are used:
//
//   - POST /api/generate: one non-streaming completion per call (120s)
//   - GET /api/version: a side-effect free health check (5s)
//
// # Key Types
//
//   - Client: HTTP client bound to one server root
//   - GenerateRequest / GenerateResponse: wire types for /api/generate
//   - VersionResponse: wire type for /api/version
//   - ClientError: classified failure (timeout, connection, status, ...)
//
// # Usage
//
//	client := ollama.NewClient("http://127.0.0.1:11434")
//	resp, err := client.Generate(ctx, ollama.NewGenerateRequest(
//	    "qwen2.5-coder:7b", "User: hi\n\nAssistant: ",
//	    ollama.Options{Temperature: 0.7, TopP: 0.9, NumPredict: 2048},
//	))
//	switch {
//	case ollama.IsTimeout(err):
//	case ollama.IsConnection(err):
//	case ollama.StatusCode(err) != 0:
//	}
//	fmt.Println(resp.Text(), resp.Tokens())
//
// Optional response fields are decoded into pointers; Text, Tokens and
// VersionString apply the documented defaults.
package ollama
