package xlread

import "encoding/xml"

// rowXML and cellXML mirror the sheetData children of a worksheet part.
// Row and cell references are optional in the file format, so they stay
// strings and are resolved positionally when absent.
type rowXML struct {
	R     string    `xml:"r,attr"`
	Cells []cellXML `xml:"c"`
}

type cellXML struct {
	R  string      `xml:"r,attr"`
	T  string      `xml:"t,attr"`
	S  int         `xml:"s,attr"`
	V  string      `xml:"v"`
	F  *formulaXML `xml:"f"`
	Is *richXML    `xml:"is"`
}

type formulaXML struct {
	Text string `xml:",chardata"`
	T    string `xml:"t,attr"`
	Ref  string `xml:"ref,attr"`
	Si   string `xml:"si,attr"`
}

// richXML is an inline string: plain text or a list of runs.
type richXML struct {
	T    string   `xml:"t"`
	Runs []runXML `xml:"r"`
}

type runXML struct {
	T string `xml:"t"`
}

type mergeCellXML struct {
	XMLName xml.Name `xml:"mergeCell"`
	Ref     string   `xml:"ref,attr"`
}
