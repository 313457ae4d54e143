package sft

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/arborly/sftrie/pkg/text"
)

// Persistence format constants, mirroring the original sftrie C++ header's
// tag values exactly so the on-disk layout described in the design note
// round-trips byte for byte.
const (
	magic = "SFTI"

	versionMajor = 0
	versionMinor = 0

	containerSet = 0
	containerMap = 1

	indexBasic  = 0
	indexTail   = 1
	indexDecomp = 2

	charsetSystem  = 0
	charsetUnicode = 1

	encodingSystem = 0
	encodingUTF8   = 1
	encodingUTF16  = 2
	encodingUTF32  = 3

	intTagUint8  = 0
	intTagInt8   = 1
	intTagUint16 = 2
	intTagInt16  = 3
	intTagUint32 = 4
	intTagInt32  = 5
	intTagUint64 = 6
	intTagInt64  = 7

	valTagUint8  = 0
	valTagInt8   = 1
	valTagUint16 = 2
	valTagInt16  = 3
	valTagUint32 = 4
	valTagInt32  = 5
	valTagUint64 = 6
	valTagInt64  = 7
)

type header struct {
	versionMajor, versionMinor byte
	containerKind              byte
	indexKind                  byte
	charset                    byte
	encoding                   byte
	integerType                byte
	valueType                  byte
	textCount                  uint64
	nodeCount                  uint64
}

func writeHeader(w io.Writer, h header) error {
	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	fields := []byte{
		h.versionMajor, h.versionMinor, h.containerKind, h.indexKind,
		h.charset, h.encoding, h.integerType, h.valueType,
	}
	if _, err := w.Write(fields); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.textCount); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, h.nodeCount)
}

func readHeader(r io.Reader) (header, error) {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return header{}, fmt.Errorf("sft: reading magic: %w", err)
	}
	if !bytes.Equal(got[:], []byte(magic)) {
		return header{}, fmt.Errorf("sft: bad magic %q, expected %q", got, magic)
	}
	var fields [8]byte
	if _, err := io.ReadFull(r, fields[:]); err != nil {
		return header{}, fmt.Errorf("sft: reading header fields: %w", err)
	}
	h := header{
		versionMajor: fields[0], versionMinor: fields[1],
		containerKind: fields[2], indexKind: fields[3],
		charset: fields[4], encoding: fields[5],
		integerType: fields[6], valueType: fields[7],
	}
	if err := binary.Read(r, binary.LittleEndian, &h.textCount); err != nil {
		return header{}, fmt.Errorf("sft: reading text_count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.nodeCount); err != nil {
		return header{}, fmt.Errorf("sft: reading node_count: %w", err)
	}
	return h, nil
}

func symbolTags[S text.Symbol]() (charset, encoding byte) {
	var z S
	switch any(z).(type) {
	case byte:
		return charsetSystem, encodingUTF8
	case uint16:
		return charsetUnicode, encodingUTF16
	case rune:
		return charsetUnicode, encodingUTF32
	case uint32:
		return charsetUnicode, encodingUTF32
	default:
		return charsetSystem, encodingSystem
	}
}

func integerTag[O text.Offset]() (byte, error) {
	var z O
	switch any(z).(type) {
	case uint8:
		return intTagUint8, nil
	case uint16:
		return intTagUint16, nil
	case uint32:
		return intTagUint32, nil
	case uint64:
		return intTagUint64, nil
	default:
		return 0, fmt.Errorf("sft: unsupported offset type %T for persistence", z)
	}
}

func valueTag[V any]() (byte, error) {
	var z V
	switch any(z).(type) {
	case uint8:
		return valTagUint8, nil
	case int8:
		return valTagInt8, nil
	case uint16:
		return valTagUint16, nil
	case int16:
		return valTagInt16, nil
	case uint32:
		return valTagUint32, nil
	case int32:
		return valTagInt32, nil
	case uint64:
		return valTagUint64, nil
	case int64:
		return valTagInt64, nil
	default:
		return 0, fmt.Errorf("sft: unsupported value type %T for persistence", z)
	}
}

// Save writes the set flavor's binary dump to w: the common header
// followed by the raw node array, little-endian, with container_kind=0.
func (t *Trie[S, O]) Save(w io.Writer) error {
	intTag, err := integerTag[O]()
	if err != nil {
		return err
	}
	charset, encoding := symbolTags[S]()
	h := header{
		versionMajor: versionMajor, versionMinor: versionMinor,
		containerKind: containerSet, indexKind: indexBasic,
		charset: charset, encoding: encoding,
		integerType: intTag, valueType: 0,
		textCount: uint64(t.keyCountHint()), nodeCount: uint64(len(t.nodes)),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	return writeNodes[S, O](w, t.nodes)
}

// SaveFile saves to a file at path, creating or truncating it.
func (t *Trie[S, O]) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Save(f)
}

// LoadTrie reads a set-flavor dump written by Save. It refuses to load a
// stream whose container/integer tags don't match S/O, leaving no partial
// trie behind.
func LoadTrie[S text.Symbol, O text.Offset](r io.Reader) (*Trie[S, O], error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if h.containerKind != containerSet {
		return nil, fmt.Errorf("sft: container_kind mismatch: file is %d, want set (%d)", h.containerKind, containerSet)
	}
	wantInt, err := integerTag[O]()
	if err != nil {
		return nil, err
	}
	if h.integerType != wantInt {
		return nil, fmt.Errorf("sft: integer_type mismatch: file is %d, want %d", h.integerType, wantInt)
	}
	nodes, err := readNodes[S, O](r, int(h.nodeCount))
	if err != nil {
		return nil, err
	}
	return &Trie[S, O]{nodes: nodes}, nil
}

// LoadTrieFile loads a set-flavor trie from a file.
func LoadTrieFile[S text.Symbol, O text.Offset](path string) (*Trie[S, O], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTrie[S, O](f)
}

// Save writes the map flavor's binary dump: the common header (with
// container_kind=1 and a value_type tag) followed by the raw node array
// and then the raw value array, little-endian. V must be one of the eight
// fixed-width integer types the format's value_type tag covers.
func (m *MapTrie[S, O, V]) Save(w io.Writer) error {
	intTag, err := integerTag[O]()
	if err != nil {
		return err
	}
	valTag, err := valueTag[V]()
	if err != nil {
		return err
	}
	charset, encoding := symbolTags[S]()
	h := header{
		versionMajor: versionMajor, versionMinor: versionMinor,
		containerKind: containerMap, indexKind: indexBasic,
		charset: charset, encoding: encoding,
		integerType: intTag, valueType: valTag,
		textCount: uint64(len(m.values)), nodeCount: uint64(len(m.nodes)),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	if err := writeNodes[S, O](w, m.nodes); err != nil {
		return err
	}
	// Values are written in node-index order, not m.values' sorted-key
	// order, so deriveValueIndex can reconstruct valueIndex on load with a
	// single ascending pass over the node array.
	for i, n := range m.nodes {
		if !n.match {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, m.values[m.valueIndex[i]]); err != nil {
			return err
		}
	}
	// valueIndex itself is derived from node layout plus match order on
	// load, so it is not written separately; see deriveValueIndex.
	return nil
}

// SaveFile saves the map flavor to a file at path.
func (m *MapTrie[S, O, V]) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Save(f)
}

// LoadMap reads a map-flavor dump written by Save.
func LoadMap[S text.Symbol, O text.Offset, V any](r io.Reader) (*MapTrie[S, O, V], error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if h.containerKind != containerMap {
		return nil, fmt.Errorf("sft: container_kind mismatch: file is %d, want map (%d)", h.containerKind, containerMap)
	}
	wantInt, err := integerTag[O]()
	if err != nil {
		return nil, err
	}
	if h.integerType != wantInt {
		return nil, fmt.Errorf("sft: integer_type mismatch: file is %d, want %d", h.integerType, wantInt)
	}
	wantVal, err := valueTag[V]()
	if err != nil {
		return nil, err
	}
	if h.valueType != wantVal {
		return nil, fmt.Errorf("sft: value_type mismatch: file is %d, want %d", h.valueType, wantVal)
	}
	nodes, err := readNodes[S, O](r, int(h.nodeCount))
	if err != nil {
		return nil, err
	}
	values := make([]V, h.textCount)
	for i := range values {
		if err := binary.Read(r, binary.LittleEndian, &values[i]); err != nil {
			return nil, fmt.Errorf("sft: reading value %d: %w", i, err)
		}
	}
	return &MapTrie[S, O, V]{
		Trie:       &Trie[S, O]{nodes: nodes},
		values:     values,
		valueIndex: deriveValueIndex(nodes),
	}, nil
}

// LoadMapFile loads a map-flavor trie from a file.
func LoadMapFile[S text.Symbol, O text.Offset, V any](path string) (*MapTrie[S, O, V], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadMap[S, O, V](f)
}

// deriveValueIndex reconstructs the node->value mapping after a load: the
// value array is written in the same order match nodes are encountered
// while writing the node array (node index ascending), so a single pass
// suffices.
func deriveValueIndex[S text.Symbol](nodes []node[S]) []int {
	idx := make([]int, len(nodes))
	next := 0
	for i, n := range nodes {
		if n.match {
			idx[i] = next
			next++
		} else {
			idx[i] = -1
		}
	}
	return idx
}

func writeNodes[S text.Symbol, O text.Offset](w io.Writer, nodes []node[S]) error {
	for i, n := range nodes {
		if err := binary.Write(w, binary.LittleEndian, n.label); err != nil {
			return fmt.Errorf("sft: writing label of node %d: %w", i, err)
		}
		var flags byte
		if n.match {
			flags |= 1
		}
		if n.leaf {
			flags |= 2
		}
		if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
			return fmt.Errorf("sft: writing flags of node %d: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, O(n.next)); err != nil {
			return fmt.Errorf("sft: writing next of node %d: %w", i, err)
		}
	}
	return nil
}

func readNodes[S text.Symbol, O text.Offset](r io.Reader, count int) ([]node[S], error) {
	nodes := make([]node[S], count)
	for i := range nodes {
		if err := binary.Read(r, binary.LittleEndian, &nodes[i].label); err != nil {
			return nil, fmt.Errorf("sft: reading label of node %d: %w", i, err)
		}
		var flags byte
		if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
			return nil, fmt.Errorf("sft: reading flags of node %d: %w", i, err)
		}
		nodes[i].match = flags&1 != 0
		nodes[i].leaf = flags&2 != 0
		var next O
		if err := binary.Read(r, binary.LittleEndian, &next); err != nil {
			return nil, fmt.Errorf("sft: reading next of node %d: %w", i, err)
		}
		nodes[i].next = int(next)
	}
	return nodes, nil
}

// keyCountHint returns the number of keys in the set, derived by counting
// match nodes; used only to populate the informational text_count header
// field on save.
func (t *Trie[S, O]) keyCountHint() int {
	n := 0
	for _, nd := range t.nodes {
		if nd.match {
			n++
		}
	}
	return n
}
