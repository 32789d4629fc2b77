package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// memoKey derives a deterministic memo key from the operation identity
// and its serialized variables.
// Format: op:<name>:<hash>
// where hash is the first 16 hex characters of SHA-256 over the
// marshaled variables. encoding/json sorts map keys, so equal variable
// sets produce equal keys regardless of insertion order.
func memoKey(op Operation) (string, error) {
	serialized, err := json.Marshal(op.Variables)
	if err != nil {
		return "", fmt.Errorf("executor: failed to serialize variables: %w", err)
	}
	hash := sha256.Sum256(serialized)
	return fmt.Sprintf("op:%s:%s", op.Name, hex.EncodeToString(hash[:8])), nil
}
