// Package ws implements the WebSocket hub for hypermind-agent.
//
// Hub pushes the sensor states of every loaded entry to all connected
// clients. A push happens on connect, after every refresh or state change
// reported by the manager, and every keepalive interval.
//
// New(store, manager, keepalive) creates a Hub.
// Hub.Run(ctx) subscribes to the manager and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket.
//
// Message format sent to clients:
//
//	{
//	  "event": "sensors",
//	  "data":  [ /* same schema as GET /api/v1/sensors */ ]
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The hub is mounted at /ws/stream by the agent.
package ws
