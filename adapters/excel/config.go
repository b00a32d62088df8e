package excel

// ReaderConfig holds configuration for expression matrix files
type ReaderConfig struct {
	// Sheet is the worksheet read from .xlsx files
	Sheet string `json:"sheet"`
	// SkipColumns is the number of annotation columns between the gene
	// identifier and the first sample column in csv/tsv/xlsx files
	SkipColumns int `json:"skip_columns"`
}

// DefaultReaderConfig returns sensible defaults for expression files
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Sheet:       "Sheet1",
		SkipColumns: 0,
	}
}
