/*
Package ports defines the driven ports (interfaces) for the slotbot engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, chat transports, and the
business-logic service.

# Key Interfaces

  - SessionStore: Responsible for persisting and loading per-user Sessions.
  - LedgerStore: Tracks posted chat message ids per screen region.
  - ChatTransport: Sends rendered screens to the chat front-end.
  - Gateway: Typed client to the business-logic service.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
