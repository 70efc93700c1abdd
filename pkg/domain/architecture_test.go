package domain

import (
	"testing"

	"configedit/testutil"
)

// The domain tree stays free of implementation packages and third-party
// libraries so every layer can depend on it.
func TestDomainImportsStandardLibraryOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return testutil.InternalImportForbidden(path) || testutil.ThirdPartyImportForbidden(path)
	}, "domain must only use the standard library")
}
