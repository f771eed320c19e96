/*
Package ports defines the driven ports (interfaces) of the transferdesk core.

These interfaces decouple the orchestrator from the concrete API client, the
token persistence and the push-notification service, so the same flows run
against HTTP, Redis, files or in-memory fakes.

# Key Interfaces

  - Gateway: performs one request against the platform API and classifies the reply.
  - TokenStorage: persists the primary and TFA session tokens across restarts.
  - NotificationBridge: registers the session with the push-notification service.
  - DistributedLocker: serializes entity mutations across replicas.
*/
package ports
