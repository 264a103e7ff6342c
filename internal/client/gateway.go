package client

// Gateway is the base-layer client the wallet drives. Reads and finality polling go
// to the Starknet node; signing and submission go through the bridge.
type Gateway struct {
	*StarknetClient
	*BridgeClient
}

func NewGateway(node *StarknetClient, bridge *BridgeClient) *Gateway {
	return &Gateway{StarknetClient: node, BridgeClient: bridge}
}
