// Package persist moves trees between the editor and everything outside it:
// local state, export files, the remote save endpoint and backup archives.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"famtree/pkg/family"
)

// ErrInvalidFormat is returned for any document that is not a valid
// {nodes, edges} tree.
var ErrInvalidFormat = errors.New("invalid file format")

const (
	// ExportFileName is the suggested name for exported trees.
	ExportFileName = "familytree.json"
	// ContentTypeJSON labels plain documents.
	ContentTypeJSON = "application/json"
	// ContentTypeZstd labels compressed archives.
	ContentTypeZstd = "application/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type document struct {
	Nodes []family.Node `json:"nodes"`
	Edges []family.Edge `json:"edges"`
}

// Encode writes tree as an indented {nodes, edges} document.
func Encode(w io.Writer, tree family.Tree) error {
	c := tree.Clone()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(document{Nodes: c.Nodes, Edges: c.Edges}); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return nil
}

// Decode reads a {nodes, edges} document. Both members must be present and
// be arrays, and the result must pass structural validation.
func Decode(r io.Reader) (family.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return family.Tree{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (family.Tree, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return family.Tree{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	for _, member := range []string{"nodes", "edges"} {
		v, ok := raw[member]
		if !ok {
			return family.Tree{}, fmt.Errorf("%w: missing %q", ErrInvalidFormat, member)
		}
		if v = bytes.TrimSpace(v); len(v) == 0 || v[0] != '[' {
			return family.Tree{}, fmt.Errorf("%w: %q is not an array", ErrInvalidFormat, member)
		}
	}
	var tree family.Tree
	if err := json.Unmarshal(raw["nodes"], &tree.Nodes); err != nil {
		return family.Tree{}, fmt.Errorf("%w: nodes: %w", ErrInvalidFormat, err)
	}
	if err := json.Unmarshal(raw["edges"], &tree.Edges); err != nil {
		return family.Tree{}, fmt.Errorf("%w: edges: %w", ErrInvalidFormat, err)
	}
	tree = tree.Clone()
	if err := tree.Validate(); err != nil {
		return family.Tree{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return tree, nil
}

// EncodeArchive renders tree for backup storage, zstd-compressed when
// compress is set.
func EncodeArchive(tree family.Tree, compress bool) ([]byte, error) {
	var plain bytes.Buffer
	if err := Encode(&plain, tree); err != nil {
		return nil, err
	}
	if !compress {
		return plain.Bytes(), nil
	}
	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	if _, err := encoder.Write(plain.Bytes()); err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return compressed.Bytes(), nil
}

// DecodeArchive reverses EncodeArchive, detecting compression by the zstd
// frame magic.
func DecodeArchive(data []byte) (family.Tree, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return decodeBytes(data)
	}
	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return family.Tree{}, fmt.Errorf("creating decoder: %w", err)
	}
	defer decoder.Close()
	plain, err := io.ReadAll(decoder)
	if err != nil {
		return family.Tree{}, fmt.Errorf("%w: decompressing: %w", ErrInvalidFormat, err)
	}
	return decodeBytes(plain)
}

// Fingerprint is an order-independent content hash of tree.
func Fingerprint(tree family.Tree) [32]byte {
	c := tree.Canonical()
	data, err := json.Marshal(document{Nodes: c.Nodes, Edges: c.Edges})
	if err != nil {
		return [32]byte{}
	}
	return blake3.Sum256(data)
}
