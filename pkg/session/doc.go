/*
Package session implements session management and persistence orchestration.

It serializes turns of the same conversation within a process, optionally
across replicas through a distributed locker, and runs each turn as a
load, decide and save unit against the configured state store.
*/
package session
