// Package intacct implements the client side of the Intacct XML gateway:
// envelope construction, the retrying HTTP transport, the scope-bound
// session manager, and the control-id batch correlator.
package intacct

import (
	"bytes"
	"encoding/xml"
)

// Element is a minimal XML tree node. Payloads are built as explicit
// element trees and serialized once at the transport boundary, keeping
// payload construction decoupled from wire encoding. Child order is
// preserved; the gateway's DTD is order-sensitive.
type Element struct {
	Name     string
	Attrs    []xml.Attr
	Value    string
	Children []*Element
}

// El creates an element with optional children.
func El(name string, children ...*Element) *Element {
	return &Element{Name: name, Children: children}
}

// Text creates a leaf element with character data.
func Text(name, value string) *Element {
	return &Element{Name: name, Value: value}
}

// Attr adds an attribute and returns the element for chaining.
func (e *Element) Attr(name, value string) *Element {
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return e
}

// Append adds children, ignoring nils so optional fields can be appended
// unconditionally.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		if c != nil {
			e.Children = append(e.Children, c)
		}
	}
	return e
}

// AppendText adds a leaf child unless the value is empty. Empty unified
// fields are omitted from payloads rather than sent as empty tags.
func (e *Element) AppendText(name, value string) *Element {
	if value != "" {
		e.Children = append(e.Children, Text(name, value))
	}
	return e
}

// Find returns the first direct child with the given name.
func (e *Element) Find(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MarshalXML implements xml.Marshaler.
func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}, Attr: e.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if e.Value != "" {
		if err := enc.EncodeToken(xml.CharData(e.Value)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := c.MarshalXML(enc, start); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Encode serializes the element tree as a standalone XML document.
func (e *Element) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := e.MarshalXML(enc, xml.StartElement{}); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
