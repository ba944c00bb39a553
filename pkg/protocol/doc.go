// ABOUTME: Yako remote-control protocol package
// ABOUTME: Defines protocol messages and WebSocket client
// Package protocol implements the yako remote-control protocol.
//
// Provides message types and a WebSocket client for driving a running
// player. Every message is a JSON envelope {"type": ..., "payload": ...}.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8928"})
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	res, err := client.Send(ctx, protocol.Command{Command: protocol.CommandPlay})
package protocol
