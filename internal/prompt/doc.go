// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a conversation into the single text prompt sent to
// the /api/generate endpoint.
//
// The layout is a plain role-labelled script:
//
//	{system}
//
//	User: {turn}
//
//	Assistant: {turn}
//
//	User: {message}
//
//	Assistant: 
//
// Role labels are not escaped. A turn whose content itself contains
// "User:" or "Assistant:" produces a prompt the model may read as extra
// turns; callers that care must sanitize input before it reaches the
// transcript.
package prompt
