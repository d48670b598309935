// Package transport moves tool requests in and out of the server and fetches remote pages
package transport

import (
	"github.com/richard-senior/valuebet/pkg/protocol"
)

// Transport defines the interface for communication methods
type Transport interface {
	ReadRequest() (*protocol.JsonRpcRequest, error)
	WriteResponse(*protocol.JsonRpcResponse) error
}
