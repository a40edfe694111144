// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the TUI and
// the line REPL.
//
// Commands mutate session configuration (model, endpoint, system prompt,
// sampling parameters), manage the transcript (clear, save, load) and
// report status. Handlers return a Result; each shell decides how to show
// its Output and how to react to its Action.
//
// # Usage
//
//	reg := commands.NewRegistry()
//	cctx := &commands.Context{Ctx: ctx, Session: sess, Prober: prober}
//	if commands.IsCommand(line) {
//	    res := reg.Run(cctx, line)
//	    fmt.Println(res.Output)
//	    if res.Action == commands.ActionQuit {
//	        return
//	    }
//	}
//
// # Commands
//
//	/help [command]          list commands
//	/clear                   forget the conversation
//	/save [json|md]          export the conversation
//	/load <path>             replace the conversation with a JSON export
//	/model [name]            show or change the model
//	/endpoint [url]          show or change the server URL
//	/system [text|--reset]   show or change the system prompt
//	/set <param> <value>     temperature, top_p or max_tokens
//	/settings                show all settings
//	/status                  probe the server
//	/history                 list the turns so far
//	/copy                    copy the last reply
//	/quit                    exit
package commands
