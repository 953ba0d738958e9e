/*
Package ports defines the driven ports (interfaces) for the Wayfinder engine.

These interfaces decouple the decision logic from external implementations, allowing
the engine to work with various graph sources, intent classifiers and session stores.

# Key Interfaces

  - GraphLoader: Responsible for loading the task graph Definition (e.g., from a file or Memory).
  - IntentClassifier: Picks one intent label among the offered candidates (e.g., an LLM).
  - NestedGraphResolver: Finds the component to resume when a sub-graph reaches a leaf.
  - StateStore: Responsible for persisting and loading session State.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
