// Package live streams a signal graph to browsers over WebSocket.
//
// Values are published under names with Hub.Bind. Every connected client
// receives the current value of each binding on connect and a new frame on
// every change:
//
//	{"type":"value","name":"count","value":3}
//
// Sources bound with Writable accept writes from clients:
//
//	{"type":"set","name":"count","value":4}
//
// The hub never touches the graph outside its reactive.Loop, so the graph
// stays single-threaded no matter how many clients are connected.
//
// Endpoints mounted by Routes:
//
//	GET /ws        WebSocket stream
//	GET /snapshot  current values as one JSON object
//	GET /healthz   liveness probe
package live
