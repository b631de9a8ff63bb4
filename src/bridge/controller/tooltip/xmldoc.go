package tooltip

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type xmlDocFile struct {
	Members []xmlDocMember `xml:"members>member"`
}

type xmlDocMember struct {
	Name    string        `xml:"name,attr"`
	Summary xmlDocText    `xml:"summary"`
	Params  []xmlDocParam `xml:"param"`
	Returns xmlDocText    `xml:"returns"`
}

type xmlDocParam struct {
	Name string `xml:"name,attr"`
	xmlDocText
}

type xmlDocText struct {
	Inner string `xml:",innerxml"`
}

// parseXmlDocFile reads the members of an XML documentation file, keyed by signature.
func parseXmlDocFile(data []byte) (map[string]string, error) {
	var f xmlDocFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing xml doc: %w", err)
	}

	members := make(map[string]string, len(f.Members))
	for _, m := range f.Members {
		if m.Name == "" {
			continue
		}
		members[m.Name] = m.render()
	}
	return members, nil
}

func (m xmlDocMember) render() string {
	var b strings.Builder
	b.WriteString(m.Summary.plain())
	for _, p := range m.Params {
		if text := p.plain(); text != "" {
			fmt.Fprintf(&b, "\n%s: %s", p.Name, text)
		}
	}
	if returns := m.Returns.plain(); returns != "" {
		fmt.Fprintf(&b, "\nReturns: %s", returns)
	}
	return strings.TrimSpace(b.String())
}

// plain flattens the markup of a doc section. References keep the name they point to.
func (t xmlDocText) plain() string {
	if t.Inner == "" {
		return ""
	}

	var words []string
	d := xml.NewDecoder(bytes.NewReader([]byte(t.Inner)))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Not well formed: show it as it is.
			return strings.Join(strings.Fields(t.Inner), " ")
		}
		switch tok := tok.(type) {
		case xml.CharData:
			words = append(words, strings.Fields(string(tok))...)
		case xml.StartElement:
			if ref := reference(tok); ref != "" {
				words = append(words, ref)
			}
		}
	}
	return strings.Join(words, " ")
}

func reference(el xml.StartElement) string {
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "cref":
			// Strip the member kind, as in "T:System.String".
			if i := strings.IndexByte(attr.Value, ':'); i == 1 {
				return attr.Value[2:]
			}
			return attr.Value
		case "name", "langword":
			return attr.Value
		}
	}
	return ""
}
