package featureflags

var (
	// ExecutableInspection counts imported functions in PE, ELF and Mach-O
	// files. When disabled executables contribute an import count of 0.
	ExecutableInspection = new("ExecutableInspection", true)

	// ArchiveInspection walks the entries of archives to produce the
	// composite archive score. When disabled archives score 0.
	ArchiveInspection = new("ArchiveInspection", true)

	// StringIndicators scans uploads for well known suspicious API names and
	// reports their counts alongside the verdict. The counts never affect the
	// label or confidence.
	StringIndicators = new("StringIndicators", true)

	// ExplainSentinel adds a line to the explanation when feature extraction
	// failed and default features were classified.
	ExplainSentinel = new("ExplainSentinel", true)
)
