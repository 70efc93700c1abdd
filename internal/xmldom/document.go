package xmldom

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"configedit/pkg/domain"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
)

// IndentSpaces is the indentation applied when a document is saved.
const IndentSpaces = 4

// Document wraps the parsed XML tree. It owns every element; domain objects
// only ever hold lookups into it, cached in refs and recomputed on demand.
type Document struct {
	doc  *etree.Document
	refs map[any]*etree.Element
}

// Parse reads a configuration document.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, domain.MalformedInputError{Field: "document", Value: "xml", Reason: err.Error()}
	}
	root := doc.Root()
	if root == nil || root.Tag != TagProject {
		return nil, domain.MalformedInputError{Field: "document", Value: "root", Reason: "missing <project> root element"}
	}
	return &Document{doc: doc, refs: make(map[any]*etree.Element)}, nil
}

// ParseBytes reads a configuration document held in memory.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8", "us-ascii":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %s", label)
}

var encodingDecl = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)

func (d *Document) declaredEncoding() string {
	for _, tok := range d.doc.Child {
		pi, ok := tok.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		if m := encodingDecl.FindStringSubmatch(pi.Inst); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return ""
}

// Root returns the project element.
func (d *Document) Root() *etree.Element { return d.doc.Root() }

// Serialize writes the tree as-is, in the declared encoding.
func (d *Document) Serialize() ([]byte, error) {
	b, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	switch d.declaredEncoding() {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewEncoder().Bytes(b)
	}
	return b, nil
}

// Render re-indents the tree and applies the save cleanup pass.
func (d *Document) Render() ([]byte, error) {
	d.doc.Indent(IndentSpaces)
	b, err := d.Serialize()
	if err != nil {
		return nil, err
	}
	return CleanupForSave(b), nil
}

// Invalidate drops every cached back-reference.
func (d *Document) Invalidate() {
	d.refs = make(map[any]*etree.Element)
}

// Forget drops the cached back-reference of one entity.
func (d *Document) Forget(entity any) {
	delete(d.refs, entity)
}

// NodeFor returns the element defining entity. A cached element is reused
// while it is still attached to the tree and still carries the entity's
// identifying attribute; otherwise it is found again by structural search
// scoped to the parent entity's element.
func (d *Document) NodeFor(entity any) (*etree.Element, error) {
	if el, ok := d.refs[entity]; ok && d.attached(el) && identifies(entity, el) {
		return el, nil
	}
	el, err := d.locate(entity)
	if err != nil {
		delete(d.refs, entity)
		return nil, err
	}
	d.refs[entity] = el
	return el, nil
}

func (d *Document) attached(el *etree.Element) bool {
	root := d.doc.Root()
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == root {
			return true
		}
	}
	return false
}

func (d *Document) locate(entity any) (*etree.Element, error) {
	switch e := entity.(type) {
	case *domain.Project:
		return d.doc.Root(), nil
	case *domain.Site:
		for _, el := range d.doc.Root().ChildElements() {
			if identifies(e, el) {
				return el, nil
			}
		}
		return nil, domain.NotFoundError{Entity: domain.EntitySite, Key: e.Name}
	case *domain.DSM:
		if e.Site() == nil {
			return nil, domain.NotFoundError{Entity: domain.EntityDSM, Key: e.Name}
		}
		parent, err := d.NodeFor(e.Site())
		if err != nil {
			return nil, err
		}
		return findChild(parent, e, domain.EntityDSM, strconv.FormatUint(uint64(e.ID), 10))
	case *domain.Sensor:
		if e.DSM() == nil {
			return nil, domain.NotFoundError{Entity: domain.EntitySensor, Key: e.DeviceName}
		}
		parent, err := d.NodeFor(e.DSM())
		if err != nil {
			return nil, err
		}
		return findChild(parent, e, domain.EntitySensor, fmt.Sprintf("%s#%d", e.DeviceName, e.ID))
	case *domain.Sample:
		if e.Sensor() == nil {
			return nil, domain.NotFoundError{Entity: domain.EntitySample, Key: strconv.FormatUint(uint64(e.ID), 10)}
		}
		parent, err := d.NodeFor(e.Sensor())
		if err != nil {
			return nil, err
		}
		return findChild(parent, e, domain.EntitySample, strconv.FormatUint(uint64(e.ID), 10))
	case *domain.Variable:
		if e.Sample() == nil {
			return nil, domain.NotFoundError{Entity: domain.EntityVariable, Key: e.Name}
		}
		parent, err := d.NodeFor(e.Sample())
		if err != nil {
			return nil, err
		}
		return findChild(parent, e, domain.EntityVariable, e.Name)
	}
	return nil, fmt.Errorf("no element mapping for %T", entity)
}

func findChild(parent *etree.Element, entity any, kind domain.EntityType, key string) (*etree.Element, error) {
	for _, el := range parent.ChildElements() {
		if identifies(entity, el) {
			return el, nil
		}
	}
	return nil, domain.NotFoundError{Entity: kind, Key: key}
}

// identifies reports whether el is the element that defines entity: the tag
// matches the entity's level and the identifying attribute matches.
func identifies(entity any, el *etree.Element) bool {
	switch e := entity.(type) {
	case *domain.Project:
		return el.Tag == TagProject
	case *domain.Site:
		return IsSiteTag(el.Tag) && el.SelectAttrValue("name", "") == e.Name
	case *domain.DSM:
		return el.Tag == TagDSM && attrUint(el, "id") == uint64(e.ID)
	case *domain.Sensor:
		return IsSensorTag(el.Tag) &&
			el.SelectAttrValue("devicename", "") == e.DeviceName &&
			attrUint(el, "id") == uint64(e.ID)
	case *domain.Sample:
		return el.Tag == TagSample && attrUint(el, "id") == uint64(e.ID)
	case *domain.Variable:
		return el.Tag == TagVariable && el.SelectAttrValue("name", "") == e.Name
	}
	return false
}

func attrUint(el *etree.Element, key string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(el.SelectAttrValue(key, "")), 10, 32)
	if err != nil {
		return 1<<64 - 1
	}
	return v
}

// CatalogElement returns the sensor catalog template with the given ID.
func (d *Document) CatalogElement(id string) (*etree.Element, bool) {
	for _, cat := range d.doc.Root().SelectElements(TagSensorCatalog) {
		for _, el := range cat.ChildElements() {
			if IsSensorTag(el.Tag) && el.SelectAttrValue("ID", "") == id {
				return el, true
			}
		}
	}
	return nil, false
}

// SiteElements lists the site elements in document order.
func (d *Document) SiteElements() []*etree.Element {
	var out []*etree.Element
	for _, el := range d.doc.Root().ChildElements() {
		if IsSiteTag(el.Tag) {
			out = append(out, el)
		}
	}
	return out
}
