// Package agentflow provides an interactive, stage-based workflow engine
// for LLM agents.
//
// A workflow moves through context gathering, planning, execution, and
// review, pausing after every stage for human feedback. The engine
// interprets each reply with lightweight intent matching (plan approval,
// change requests, completion, fresh requests) and advances, revises, or
// restarts accordingly. Handler failures never corrupt a conversation:
// each turn runs against a copy of the state that is committed only on
// success.
//
// The package is organized into subpackages by domain:
//
//   - intent: Heuristic feedback classification (English and Korean)
//   - task: Task-based model selection
//   - prompt: Prompt template loading with embedded defaults
//   - mcptool: Tool servers speaking the Model Context Protocol
//   - transcript: Workflow transcript recording and search
//   - notify: Notification services (Slack, webhook)
//   - config: Hierarchical configuration resolution
//   - testutil: Test utilities and fixtures
//
// # Quick Start
//
//	agent, _ := agentflow.NewClaudeCLI(agentflow.ClaudeConfig{})
//	engine := agentflow.NewEngine(agent)
//
//	// Each call is one conversational turn.
//	reply, _ := engine.Run(ctx, "Add retry logic to the fetcher", nil)
//	fmt.Println(reply) // analysis, then a plan on the next turn, and so on
//
// Unattended runs skip the human pauses:
//
//	pipeline, _ := agentflow.NewPipeline(agent)
//	result, _ := pipeline.Run(ctx, "Summarize open incidents")
//
// See individual package documentation for detailed usage.
package agentflow
