// Package contract holds the ABIs w3send can decode events with: a few
// embedded built-ins plus user-supplied ABI or artifact files.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Builtin is an ABI compiled into the binary.
type Builtin struct {
	ID          string
	Name        string
	Description string
	JSON        string
}

var builtins = map[string]Builtin{}

// RegisterBuiltin adds b to the registry. Called from init in each *_abi.go file.
func RegisterBuiltin(b Builtin) {
	builtins[b.ID] = b
}

// GetBuiltin returns a built-in by ID.
func GetBuiltin(id string) (Builtin, bool) {
	b, ok := builtins[strings.ToLower(id)]
	return b, ok
}

// AllBuiltins returns the registered built-ins sorted by ID.
func AllBuiltins() []Builtin {
	out := make([]Builtin, 0, len(builtins))
	for _, b := range builtins {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Builtin) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Parse returns the go-ethereum ABI for b.
func (b Builtin) Parse() (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(b.JSON))
	if err != nil {
		return nil, fmt.Errorf("builtin %s: %w", b.ID, err)
	}
	return &parsed, nil
}

// Load resolves idOrPath as a built-in ID first, then as a file holding
// either a bare ABI array or a Hardhat/Foundry artifact with an "abi" field.
func Load(idOrPath string) (*abi.ABI, error) {
	if b, ok := GetBuiltin(idOrPath); ok {
		return b.Parse()
	}
	data, err := os.ReadFile(idOrPath)
	if err != nil {
		return nil, fmt.Errorf("%q is not a builtin ABI (%s) and could not be read: %w",
			idOrPath, strings.Join(builtinIDs(), ", "), err)
	}
	return ParseJSON(data)
}

// ParseJSON parses an ABI array or an artifact object containing one.
func ParseJSON(data []byte) (*abi.ABI, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty ABI")
	}
	if data[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(data, &artifact); err != nil {
			return nil, fmt.Errorf("parsing artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return nil, errors.New("artifact has no \"abi\" field")
		}
		data = artifact.ABI
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	return &parsed, nil
}

func builtinIDs() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
