package domain

const (
	// Gateway constants
	DEFAULT_IPFS_GATEWAY = "https://ipfs.io"

	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// ZERO_ROLE is the sentinel substituted when a role constant cannot be
	// read from the contract. It never collides with a real keccak role id.
	ZERO_ROLE = "0x0000000000000000000000000000000000000000000000000000000000000000"
)
