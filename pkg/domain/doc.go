/*
Package domain contains the core models of the slot bot: sessions, wizard
states, chat events, screens and the backend task entities.

It is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Session: Per-user wizard position plus a scratchpad of collected answers.
  - Event: A single inbound user interaction (free text or button press).
  - Screen: A renderable message with an inline keyboard.
  - SlotTask, AutobookTask, MoveTask: Backend task entities the bot lists and manages.
  - GatewayError: Classified failure of a backend round trip.
*/
package domain
