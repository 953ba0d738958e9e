/*
Package runner implements the interactive conversation loop for the Wayfinder engine.

It acts as the bridge between the decision engine and a human (or a script)
on the other side. The runner greets with the start node, reads utterances,
keeps the conversation history handed to the classifier, asks the engine for
the next node, and persists every turn through the session manager.

# Key Components

  - Runner: The loop itself.
  - IOHandler: Decouples how messages are exchanged (text or JSON lines).
  - TextHandler: Interactive CLI usage with markdown rendering.
  - JSONHandler: Structured JSON-Lines for scripting and tests.

# Usage

	r := runner.New(engine,
		runner.WithManager(session.NewManager(store)),
		runner.WithSessionID("user-1"),
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
