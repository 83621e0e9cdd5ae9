package invertex

// EngineConfig bundles every process-wide tuning parameter into a single
// value handed to a Section at open time, instead of reaching for global
// singletons. Hot-read values are copied into locals by callers that loop
// over them, the same way the teacher copies BM25Parameters into locals
// inside calculateBM25Score.
type EngineConfig struct {
	// InsertMergeFileSize: once the executor-side small insert unit exceeds
	// this size, Insert reports needMerge = true. Default 128 MiB.
	InsertMergeFileSize int64

	// ExpungeMergeFileSize is the expunge counterpart of
	// InsertMergeFileSize. Default 128 MiB.
	ExpungeMergeFileSize int64

	// IsAsyncMerge: when false, every Insert call that crosses a merge
	// threshold runs syncMerge inline before returning (Expunge never
	// triggers a merge). Default true.
	IsAsyncMerge bool

	// IDBlockUnitSize is the number of postings per fixed-size ID block in
	// a Middle list's overflow chain. Default 16.
	IDBlockUnitSize int

	// WordIDBlockUnitSize is the ID block size reserved for the empty-string
	// "word boundary" key. No list in this package reads it: every Middle
	// list uses IDBlockUnitSize. Default 4.
	WordIDBlockUnitSize int

	// ShortListInitialUnitSize is the starting Area size, in 32-bit units,
	// for a newly created Short list. Default 32. The in-memory batch list
	// is a plain slice and does not use this growth policy.
	ShortListInitialUnitSize int

	// ShortListRegularUnitSize (T1) is the size, in units, up to which a
	// Short list's Area doubles on growth. Default 1024 (4 KiB).
	ShortListRegularUnitSize int

	// ShortListMaxUnitSize (T2) is the hard cap, in units, beyond which a
	// Short list must convert to Middle. Default 16384 (64 KiB).
	ShortListMaxUnitSize int

	// BatchSizeMax: once a BatchListMap's aggregate accounted size (see
	// DESIGN.md Open Question Decision 3) exceeds this, the map is merged
	// into the large index and reset. Default 60 MiB.
	BatchSizeMax int64

	// MaxWordLength is the configured maximum term length. The tokenizer
	// does not consult it, so terms of any length are indexed. Default 32.
	MaxWordLength int

	// VacuumThreshold is the per-term expunge-count-since-last-vacuum
	// threshold; once a term's count reaches it, the list is vacuumed.
	// Default 64.
	VacuumThreshold int

	// DistributedUnitCount is the number of large-index file units a
	// section may distribute postings across. 1 disables distribution.
	DistributedUnitCount int

	// InitialMaxFileSize is the starting per-unit size ceiling used by
	// changeUnit() when DistributedUnitCount > 1. Doubles every time all
	// units have been cycled through. Default 1 MiB.
	InitialMaxFileSize int64

	// ExpungeFlag selects delete-flag mode: when true, expunge sets a bit
	// in a dense per-doc vector instead of tokenizing and inserting into a
	// small expunge unit.
	ExpungeFlag bool

	// FeatureSetCompressionThreshold: FeatureSet byte images at or above
	// this size are zstd-compressed in the OtherInformationFile variable
	// region (domain-stack addition, see DESIGN.md).
	FeatureSetCompressionThreshold int

	// AnalyzerMinTokenLength overrides analyzer.go's default minimum token
	// length (default 2 when zero).
	AnalyzerMinTokenLength int

	// AnalyzerDisableStemming turns off Porter2 stemming for this engine
	// instance, e.g. for exact-form word indexing alongside a separate
	// n-gram term space that already absorbs morphological variants.
	AnalyzerDisableStemming bool

	// AnalyzerDisableStopwords turns off stopword filtering for this engine
	// instance.
	AnalyzerDisableStopwords bool

	// ExtraStopwords supplements analyzer.go's built-in English stopword
	// list with corpus-specific noise words.
	ExtraStopwords []string
}

// analyzerConfig derives the analyzer.go pipeline configuration this engine
// instance should use, the same way DefaultBM25Parameters/DefaultConfig
// hand a teacher-style struct to its consumer instead of the consumer
// reaching for package-level defaults itself.
func (cfg EngineConfig) analyzerConfig() AnalyzerConfig {
	minLen := cfg.AnalyzerMinTokenLength
	if minLen == 0 {
		minLen = 2
	}
	var extra map[string]struct{}
	if len(cfg.ExtraStopwords) > 0 {
		extra = make(map[string]struct{}, len(cfg.ExtraStopwords))
		for _, w := range cfg.ExtraStopwords {
			extra[w] = struct{}{}
		}
	}
	return AnalyzerConfig{
		MinTokenLength:  minLen,
		EnableStemming:  !cfg.AnalyzerDisableStemming,
		EnableStopwords: !cfg.AnalyzerDisableStopwords,
		ExtraStopwords:  extra,
	}
}

// DefaultEngineConfig returns sane zero-config defaults, the way the
// teacher's DefaultBM25Parameters / DefaultConfig do.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InsertMergeFileSize:            128 << 20,
		ExpungeMergeFileSize:           128 << 20,
		IsAsyncMerge:                   true,
		IDBlockUnitSize:                16,
		WordIDBlockUnitSize:            4,
		ShortListInitialUnitSize:       32,
		ShortListRegularUnitSize:       1024,
		ShortListMaxUnitSize:           16384,
		BatchSizeMax:                   60 << 20,
		MaxWordLength:                  32,
		VacuumThreshold:                64,
		DistributedUnitCount:           1,
		InitialMaxFileSize:             1 << 20,
		ExpungeFlag:                    false,
		FeatureSetCompressionThreshold: 512,
	}
}
