package integrationtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/agentflow"
	"github.com/randalmurphal/agentflow/notify"
	"github.com/randalmurphal/agentflow/prompt"
	"github.com/randalmurphal/agentflow/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInteractiveWorkflowEndToEnd drives a full conversation through the
// engine with the flowgraph mock client behind the completer, recording
// transcripts and notifications along the way.
func TestInteractiveWorkflowEndToEnd(t *testing.T) {
	mockLLM := mockResponses(
		"The request needs a greeting helper.",        // analyze
		"The package has no existing greeting code.",  // gather
		"Add the helper.\n1. Write Greet\n2. Test it", // plan
		"Implementation matches the plan.",            // review notes
	)
	agent := newComposedAgent(mockLLM, &agentflow.ToolResult{
		Response:  "Greet function written and tested.",
		UsedTools: []string{"Edit", "Bash"},
	})

	store, err := transcript.NewFileStore(transcript.StoreConfig{
		BaseDir: filepath.Join(t.TempDir(), ".agentflow"),
	})
	require.NoError(t, err)

	captured := &notificationCapture{}

	engine := agentflow.NewEngine(agent,
		agentflow.WithPrompts(prompt.NewLoader("")),
		agentflow.WithNotifier(captured),
		agentflow.WithTranscripts(store),
	)

	ctx := context.Background()

	// Turn 1: request starts the workflow.
	reply, err := engine.Run(ctx, "add a greeting helper", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "## Request Analysis")
	require.NotNil(t, engine.State())
	assert.Equal(t, agentflow.StagePlanning, engine.State().Stage)

	// Turn 2: feedback produces the plan and approval menu.
	reply, err = engine.Run(ctx, "looks right, keep going", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Does this plan work for you?")

	// Turn 3: approval executes through the tool collaborator.
	reply, err = engine.Run(ctx, "approve", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Greet function written and tested.")
	require.Len(t, agent.Tasks, 1)
	assert.Contains(t, agent.Tasks[0], "Add the helper.")
	assert.Contains(t, agent.Tasks[0], "1. Write Greet")

	// Turn 4: acceptance completes and destroys the workflow.
	reply, err = engine.Run(ctx, "done, thanks", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Workflow complete.")
	assert.False(t, engine.Active())

	// Mock client served exactly the four scripted completions.
	assert.Equal(t, 4, mockLLM.CallCount())

	// Notifications bracket the workflow.
	types := captured.Types()
	require.NotEmpty(t, types)
	assert.Equal(t, notify.EventWorkflowStarted, types[0])
	assert.Equal(t, notify.EventWorkflowCompleted, types[len(types)-1])

	// Transcript was recorded and closed.
	metas, err := store.List(transcript.ListFilter{})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, transcript.RunStatusCompleted, metas[0].Status)
	assert.Equal(t, "add a greeting helper", metas[0].Request)

	tr, err := store.Load(metas[0].RunID)
	require.NoError(t, err)
	// One user and one assistant turn per conversational turn.
	assert.Len(t, tr.Turns, 8)
	assert.Positive(t, tr.Metadata.TotalTokensOut)
}

// TestSessionIsolationEndToEnd verifies that two sessions backed by
// independent engines never share workflow state.
func TestSessionIsolationEndToEnd(t *testing.T) {
	manager := agentflow.NewSessionManager(func() *agentflow.Engine {
		mockLLM := mockResponses(
			"Analysis.",
			"Background.",
			"Plan.\n1. Step",
			"Review notes.",
		)
		return agentflow.NewEngine(newComposedAgent(mockLLM))
	})

	ctx := context.Background()
	a, err := manager.Open()
	require.NoError(t, err)
	b, err := manager.Open()
	require.NoError(t, err)

	_, err = manager.Run(ctx, a.ID, "refactor the parser", nil)
	require.NoError(t, err)

	require.True(t, a.Engine.Active())
	assert.False(t, b.Engine.Active(), "session b must not see session a's workflow")
	assert.Equal(t, "refactor the parser", a.Engine.State().OriginalRequest)

	require.NoError(t, manager.Close(ctx, a.ID))
	assert.Equal(t, 1, manager.Len())
}

// TestHandlerFailureContainment verifies that a collaborator outage mid
// conversation leaves the committed state untouched.
func TestHandlerFailureContainment(t *testing.T) {
	agent := agentflow.NewScriptedAgent(
		"Analysis.",
		"Background.",
	)
	engine := agentflow.NewEngine(agent)
	ctx := context.Background()

	_, err := engine.Run(ctx, "first request", nil)
	require.NoError(t, err)
	before := engine.State()

	agent.Err = assert.AnError
	reply, err := engine.Run(ctx, "plan it", nil)
	require.NoError(t, err, "handler failures are contained, not returned")
	assert.Contains(t, reply, "Something went wrong")

	after := engine.State()
	assert.Equal(t, before.Stage, after.Stage)
	assert.Equal(t, before.Iterations, after.Iterations)
	assert.Len(t, after.UserFeedback, len(before.UserFeedback))
}
