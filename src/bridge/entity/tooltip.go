package entity

import (
	"go.lsp.dev/protocol"
)

// TokenKind classifies the token under the cursor.
type TokenKind int

const (
	// TokenIdentifier is a plain or qualified identifier.
	TokenIdentifier TokenKind = iota
	// TokenString is a string literal, such as an import path.
	TokenString
	// TokenKeyword is a language keyword.
	TokenKeyword
)

// String implements fmt.Stringer.
func (k TokenKind) String() string {
	switch k {
	case TokenIdentifier:
		return "identifier"
	case TokenString:
		return "string"
	case TokenKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// ToolTipQuery is the input of a single hover.
type ToolTipQuery struct {
	Document protocol.TextDocumentIdentifier
	// Position is the zero based end of the token, columns in UTF-16 code units.
	Position protocol.Position
	LineText string
	// Names is the qualifier chain ending with the name under the cursor.
	Names     []string
	TokenKind TokenKind
}

// Identifier returns the name under the cursor.
func (q ToolTipQuery) Identifier() string {
	if len(q.Names) == 0 {
		return ""
	}
	return q.Names[len(q.Names)-1]
}

// ToolTipElementKind discriminates ToolTipElement.
type ToolTipElementKind int

const (
	// ToolTipNone carries nothing.
	ToolTipNone ToolTipElementKind = iota
	// ToolTipGroup carries the overloads of a symbol.
	ToolTipGroup
	// ToolTipCompositionError carries the reason a tooltip could not be built.
	ToolTipCompositionError
)

// String implements fmt.Stringer.
func (k ToolTipElementKind) String() string {
	switch k {
	case ToolTipNone:
		return "None"
	case ToolTipGroup:
		return "Group"
	case ToolTipCompositionError:
		return "CompositionError"
	default:
		return "Unknown"
	}
}

// ToolTipElement is one section of a tooltip. Only the fields of its Kind are set.
type ToolTipElement struct {
	Kind      ToolTipElementKind
	Overloads []Overload
	Error     string
}

// Overload is one signature of a symbol and its documentation.
type Overload struct {
	MainDescription string
	XmlDoc          XmlDoc
}

// NoToolTip returns a None element.
func NoToolTip() ToolTipElement {
	return ToolTipElement{Kind: ToolTipNone}
}

// ToolTipGroupOf returns a Group element.
func ToolTipGroupOf(overloads ...Overload) ToolTipElement {
	return ToolTipElement{Kind: ToolTipGroup, Overloads: overloads}
}

// ToolTipErrorOf returns a CompositionError element.
func ToolTipErrorOf(msg string) ToolTipElement {
	return ToolTipElement{Kind: ToolTipCompositionError, Error: msg}
}

// XmlDocKind discriminates XmlDoc.
type XmlDocKind int

const (
	// XmlDocNone means the symbol has no documentation.
	XmlDocNone XmlDocKind = iota
	// XmlDocText carries the documentation inline.
	XmlDocText
	// XmlDocFileSignature points into an XML documentation file.
	XmlDocFileSignature
)

// String implements fmt.Stringer.
func (k XmlDocKind) String() string {
	switch k {
	case XmlDocNone:
		return "none"
	case XmlDocText:
		return "text"
	case XmlDocFileSignature:
		return "fileSignature"
	default:
		return "unknown"
	}
}

// ParseXmlDocKind is the inverse of XmlDocKind.String.
func ParseXmlDocKind(s string) (XmlDocKind, bool) {
	for _, k := range []XmlDocKind{XmlDocNone, XmlDocText, XmlDocFileSignature} {
		if k.String() == s {
			return k, true
		}
	}
	return XmlDocNone, false
}

// XmlDoc is the documentation attached to an overload. Only the fields of its Kind are set.
type XmlDoc struct {
	Kind      XmlDocKind
	Text      string
	File      string
	Signature string
}

// NoXmlDoc returns a None doc.
func NoXmlDoc() XmlDoc {
	return XmlDoc{Kind: XmlDocNone}
}

// XmlDocTextOf returns an inline doc.
func XmlDocTextOf(text string) XmlDoc {
	return XmlDoc{Kind: XmlDocText, Text: text}
}

// XmlDocFileSignatureOf returns a doc resolved from a documentation file.
func XmlDocFileSignatureOf(file, signature string) XmlDoc {
	return XmlDoc{Kind: XmlDocFileSignature, File: file, Signature: signature}
}
