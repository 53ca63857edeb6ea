package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/sanonone/shelfgraph/pkg/graph"
	"github.com/sanonone/shelfgraph/pkg/persistence"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

// Reserved attribute names. A node attribute with one of these names is
// overridden by the graph's own value.
const (
	kindAttr   = "kind"
	weightAttr = "weight"
)

// GraphML attribute types.
const (
	typeString = "string"
	typeLong   = "long"
	typeDouble = "double"
	typeBool   = "boolean"
	typeInt    = "int"
	typeFloat  = "float"
)

// ErrInvalidGraphML is returned when a document cannot be turned back into a graph.
var ErrInvalidGraphML = errors.New("invalid graphml")

type xmlGraphML struct {
	XMLName xml.Name `xml:"graphml"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`
	Keys    []xmlKey `xml:"key"`
	Graph   xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type xmlGraph struct {
	ID          string    `xml:"id,attr,omitempty"`
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	ID   string    `xml:"id,attr"`
	Data []xmlData `xml:"data"`
}

type xmlEdge struct {
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []xmlData `xml:"data"`
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// attrKey is a node attribute column with the GraphML type inferred from its values.
type attrKey struct {
	id, name, typ string
}

// inferType picks the narrowest type able to hold every value of a column:
// long if all values are int64, double if they are numeric, string otherwise.
func inferType(values []any) string {
	typ := typeLong
	for _, v := range values {
		switch v.(type) {
		case int64:
		case float64:
			typ = typeDouble
		default:
			return typeString
		}
	}
	return typ
}

func formatValue(v any, typ string) string {
	switch typ {
	case typeLong:
		return strconv.FormatInt(v.(int64), 10)
	case typeDouble:
		switch x := v.(type) {
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return formatFloat(x)
		}
	}
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	}
	return fmt.Sprint(v)
}

// formatFloat uses the shortest representation that parses back to the same value.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteGraphML encodes g as an undirected GraphML document. Nodes are identified
// by their key; each edge carries its weight as a double.
func WriteGraphML(w io.Writer, g *graph.Graph) error {
	nodes := g.Nodes()
	flat := make([]map[string]any, len(nodes))
	columns := make(map[string][]any)
	for i, n := range nodes {
		flat[i] = FlattenAttrs(n.Attrs)
		delete(flat[i], kindAttr)
		for name, v := range flat[i] {
			columns[name] = append(columns[name], v)
		}
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := xmlGraphML{Xmlns: graphMLNamespace}
	keys := make([]attrKey, 0, len(names)+1)
	keys = append(keys, attrKey{id: "d0", name: kindAttr, typ: typeString})
	for i, name := range names {
		keys = append(keys, attrKey{id: fmt.Sprintf("d%d", i+1), name: name, typ: inferType(columns[name])})
	}
	weightKey := fmt.Sprintf("d%d", len(keys))
	for _, k := range keys {
		doc.Keys = append(doc.Keys, xmlKey{ID: k.id, For: "node", Name: k.name, Type: k.typ})
	}
	doc.Keys = append(doc.Keys, xmlKey{ID: weightKey, For: "edge", Name: weightAttr, Type: typeDouble})

	doc.Graph = xmlGraph{ID: g.Name, EdgeDefault: "undirected", Nodes: make([]xmlNode, len(nodes))}
	for i, n := range nodes {
		xn := xmlNode{ID: n.Key, Data: []xmlData{{Key: "d0", Value: string(n.Kind)}}}
		for _, k := range keys[1:] {
			v, ok := flat[i][k.name]
			if !ok {
				continue
			}
			xn.Data = append(xn.Data, xmlData{Key: k.id, Value: formatValue(v, k.typ)})
		}
		doc.Graph.Nodes[i] = xn
	}
	for _, e := range g.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, xmlEdge{
			Source: nodes[e.Source].Key,
			Target: nodes[e.Target].Key,
			Data:   []xmlData{{Key: weightKey, Value: formatFloat(e.Weight)}},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding graphml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func knownType(typ string) bool {
	switch typ {
	case "", typeString, typeLong, typeInt, typeDouble, typeFloat, typeBool:
		return true
	}
	return false
}

// parseValue converts raw to the Go value of a GraphML attr.type. An empty type
// is a string.
func parseValue(raw, typ string) (any, error) {
	switch typ {
	case typeString, "":
		return raw, nil
	case typeLong, typeInt:
		return strconv.ParseInt(raw, 10, 64)
	case typeDouble, typeFloat:
		return strconv.ParseFloat(raw, 64)
	case typeBool:
		return strconv.ParseBool(raw)
	default:
		return nil, fmt.Errorf("unsupported attr.type %q", typ)
	}
}

// ReadGraphML decodes a document written by WriteGraphML. Node order, keys,
// kinds, flattened attributes and edge weights are restored. Edges without a
// weight default to 1.
func ReadGraphML(r io.Reader) (*graph.Graph, error) {
	var doc xmlGraphML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraphML, err)
	}

	nodeKeys := make(map[string]xmlKey)
	var weightKey string
	for _, k := range doc.Keys {
		if !knownType(k.Type) {
			return nil, fmt.Errorf("%w: key %q has unsupported attr.type %q", ErrInvalidGraphML, k.ID, k.Type)
		}
		switch k.For {
		case "node", "all":
			nodeKeys[k.ID] = k
		}
		if (k.For == "edge" || k.For == "all") && k.Name == weightAttr {
			weightKey = k.ID
		}
	}

	g := graph.New(doc.Graph.ID)
	for _, xn := range doc.Graph.Nodes {
		kind := graph.KindDocument
		attrs := make(map[string]any, len(xn.Data))
		for _, d := range xn.Data {
			k, ok := nodeKeys[d.Key]
			if !ok {
				continue
			}
			if k.Name == kindAttr {
				kind = graph.Kind(d.Value)
				continue
			}
			v, err := parseValue(d.Value, k.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: node %q attribute %q: %v", ErrInvalidGraphML, xn.ID, k.Name, err)
			}
			attrs[k.Name] = v
		}
		if _, err := g.AddNode(xn.ID, kind, attrs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGraphML, err)
		}
	}

	for _, xe := range doc.Graph.Edges {
		src, ok := g.NodeByKey(xe.Source)
		if !ok {
			return nil, fmt.Errorf("%w: edge source %q is not a node", ErrInvalidGraphML, xe.Source)
		}
		dst, ok := g.NodeByKey(xe.Target)
		if !ok {
			return nil, fmt.Errorf("%w: edge target %q is not a node", ErrInvalidGraphML, xe.Target)
		}
		weight := 1.0
		for _, d := range xe.Data {
			if d.Key != weightKey {
				continue
			}
			w, err := strconv.ParseFloat(d.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: edge %q-%q weight: %v", ErrInvalidGraphML, xe.Source, xe.Target, err)
			}
			weight = w
		}
		if _, err := g.AddEdge(src.Index, dst.Index, weight); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGraphML, err)
		}
	}
	return g, nil
}

// WriteGraphMLFile writes g to path, replacing any previous file atomically.
func WriteGraphMLFile(path string, g *graph.Graph) error {
	return persistence.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteGraphML(w, g)
	})
}

// ReadGraphMLFile loads a graph from path.
func ReadGraphMLFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraphML(f)
}
