// Package hierarchy parses Android UI hierarchy XML as returned by the
// page source endpoint.
package hierarchy

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// Bounds is an element rectangle in screen pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Node is one element of the hierarchy.
type Node struct {
	ClassName   string
	Text        string
	ResourceID  string
	ContentDesc string
	Bounds      Bounds
	Enabled     bool
	Displayed   bool
	Focused     bool
	Clickable   bool
	Depth       int

	// Attrs holds every raw attribute for xpath predicates.
	Attrs map[string]string
}

// Parse parses page source XML into a flat, document-ordered node list.
func Parse(xmlData string) ([]*Node, error) {
	decoder := xml.NewDecoder(strings.NewReader(xmlData))

	var nodes []*Node
	foundHierarchy := false
	depth := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(nodes) == 0 {
				return nil, err
			}
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "hierarchy" {
				foundHierarchy = true
				continue
			}
			nodes = append(nodes, newNode(t, depth))
			depth++
		case xml.EndElement:
			if t.Name.Local != "hierarchy" {
				depth--
			}
		}
	}

	if !foundHierarchy {
		return nil, fmt.Errorf("invalid page source: no hierarchy element found")
	}
	return nodes, nil
}

func newNode(t xml.StartElement, depth int) *Node {
	n := &Node{
		ClassName: t.Name.Local,
		Displayed: true,
		Depth:     depth,
		Attrs:     make(map[string]string, len(t.Attr)),
	}

	for _, attr := range t.Attr {
		n.Attrs[attr.Name.Local] = attr.Value
		switch attr.Name.Local {
		case "text":
			n.Text = attr.Value
		case "resource-id":
			n.ResourceID = attr.Value
		case "content-desc":
			n.ContentDesc = attr.Value
		case "class":
			n.ClassName = attr.Value
		case "bounds":
			n.Bounds = parseBounds(attr.Value)
		case "enabled":
			n.Enabled = attr.Value == "true"
		case "focused":
			n.Focused = attr.Value == "true"
		case "displayed":
			n.Displayed = attr.Value != "false"
		case "clickable":
			n.Clickable = attr.Value == "true"
		}
	}
	return n
}

// parseBounds parses Android bounds string "[x1,y1][x2,y2]".
func parseBounds(s string) Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}
	}

	x1, _ := strconv.Atoi(parts[0])
	y1, _ := strconv.Atoi(parts[1])
	x2, _ := strconv.Atoi(parts[2])
	y2, _ := strconv.Atoi(parts[3])

	return Bounds{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// Fingerprint reduces page source to the attributes that reflect layout and
// content, dropping focus and selection state that flickers while idle.
// Unparseable input is returned unchanged.
func Fingerprint(xmlData string) string {
	nodes, err := Parse(xmlData)
	if err != nil {
		return xmlData
	}

	var sb strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&sb, "%d|%s|%s|%s|%s|%d,%d,%d,%d|%t\n",
			n.Depth, n.ClassName, n.ResourceID, n.ContentDesc, n.Text,
			n.Bounds.X, n.Bounds.Y, n.Bounds.Width, n.Bounds.Height, n.Displayed)
	}
	return sb.String()
}

// xpathPattern matches the //Class[@attr='value'] form used by scenarios.
var xpathPattern = regexp.MustCompile(`^//([\w.*]+)(?:\[@([\w-]+)=['"]([^'"]*)['"]\])?$`)

// Find returns the nodes matching loc in document order. Accessibility ids
// match content-desc; ids match resource-id. XPath supports only
// //Class and //Class[@attr='value'].
func Find(nodes []*Node, loc core.Locator) ([]*Node, error) {
	var match func(*Node) bool

	switch loc.Strategy() {
	case core.StrategyAccessibilityID:
		match = func(n *Node) bool { return n.ContentDesc == loc.Value() }
	case core.StrategyID:
		match = func(n *Node) bool { return n.ResourceID == loc.Value() }
	case core.StrategyXPath:
		m := xpathPattern.FindStringSubmatch(loc.Value())
		if m == nil {
			return nil, core.ErrInvalidLocator.WithMessage(fmt.Sprintf("unsupported xpath %q", loc.Value()))
		}
		class, attr, value := m[1], m[2], m[3]
		match = func(n *Node) bool {
			if class != "*" && n.ClassName != class {
				return false
			}
			return attr == "" || n.Attrs[attr] == value
		}
	default:
		return nil, core.ErrInvalidLocator.WithMessage("empty locator")
	}

	var out []*Node
	for _, n := range nodes {
		if match(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
