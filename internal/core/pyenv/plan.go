package pyenv

// =============================================================================
// Setup Planning (Pure Functions)
// =============================================================================

// Facts are the observed filesystem inputs to setup planning. The caller
// stats the relevant paths; planning itself touches nothing.
type Facts struct {
	// InterpreterPresent is true if the venv interpreter already exists.
	InterpreterPresent bool

	// ManifestPresent is true if the dependency manifest file exists.
	ManifestPresent bool
}

// Plan is the ordered set of setup actions to perform before launch.
type Plan struct {
	// CreateVenv requests creation of the virtual environment. Skipped
	// when the interpreter already exists, making setup idempotent.
	CreateVenv bool

	// UpgradeTooling requests a best-effort upgrade of pip, setuptools
	// and wheel. Always performed.
	UpgradeTooling bool

	// InstallManifest requests installation from the dependency manifest.
	// Gated purely on the manifest's presence, never its content.
	InstallManifest bool
}

// BuildPlan computes the setup plan from observed facts.
func BuildPlan(f Facts) Plan {
	return Plan{
		CreateVenv:      !f.InterpreterPresent,
		UpgradeTooling:  true,
		InstallManifest: f.ManifestPresent,
	}
}
