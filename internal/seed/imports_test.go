package seed

import (
	"testing"

	"boardhouse/testutil"
)

func TestNoDriverImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden, "seed reaches storage through internal/backing")
	testutil.AssertNoDirectImports(t, ".", testutil.DriverSDKForbidden, "seed must not depend on database drivers or cloud SDKs")
}
