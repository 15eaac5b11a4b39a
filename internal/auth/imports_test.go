package auth

import (
	"testing"

	"boardhouse/testutil"
)

func TestNoDriverImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden, "auth reaches storage through internal/backing")
	testutil.AssertNoDirectImports(t, ".", testutil.DriverSDKForbidden, "auth must not depend on database drivers or cloud SDKs")
}
