/*
Package domain contains the core domain models of the Wayfinder dialog engine.

It defines the task graph entities, the per-conversation session state, and the
decision handed to the execution layer every turn. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Node: A conversation state with the resource that executes it.
  - Edge: A labeled transition; "none" labels unconditional moves and Pred marks
    globally reachable intents.
  - State: The session snapshot (current node, statuses, global intent pool,
    flow stack, audit trail).
  - NodeDecision: Which node and resource the host should run next.
*/
package domain
