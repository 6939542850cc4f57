package excel

// Row is one data row keyed by trimmed header. Line is the 1-based line or
// sheet row number, so errors can point back into the source file.
type Row struct {
	Line   int
	Values map[string]string
}

// Table is a parsed sheet
type Table struct {
	Headers []string
	Rows    []Row
}
