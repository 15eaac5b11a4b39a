package backing

import (
	"go/types"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDriverPackagesStayBehindFacades loads the module and checks that the
// concrete driver packages are only imported through their facades.
func TestDriverPackagesStayBehindFacades(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "boardhouse/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	rules := []struct {
		prefix  string
		allowed func(importer string) bool
	}{
		{"boardhouse/internal/infra/backing/", func(p string) bool { return p == "boardhouse/internal/backing" }},
		{"boardhouse/internal/infra/blob/", func(p string) bool {
			return p == "boardhouse/internal/blob" || strings.HasPrefix(p, "boardhouse/internal/infra/blob/")
		}},
	}
	var viols []string
	for _, p := range pkgs {
		for imp := range p.Imports {
			for _, r := range rules {
				if strings.HasPrefix(imp, r.prefix) && !r.allowed(p.PkgPath) {
					viols = append(viols, p.PkgPath+" -> "+imp)
				}
			}
		}
	}
	if len(viols) > 0 {
		sort.Strings(viols)
		t.Fatalf("driver packages imported outside their facade:\n%s", strings.Join(viols, "\n"))
	}
}

// TestDriverImplementations ensures Driver is only implemented by the
// sanctioned backing packages.
func TestDriverImplementations(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes}
	pkgs, err := packages.Load(cfg, "boardhouse/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var driver *types.Interface
	for _, p := range pkgs {
		if p.PkgPath != "boardhouse/internal/backing" || p.Types == nil {
			continue
		}
		obj := p.Types.Scope().Lookup("Driver")
		if obj == nil {
			t.Fatalf("backing.Driver not found")
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			t.Fatalf("backing.Driver is not an interface")
		}
		driver = iface
	}
	if driver == nil {
		t.Fatalf("failed to resolve backing.Driver")
	}
	allowed := map[string]bool{
		"boardhouse/internal/infra/backing/memory":      true,
		"boardhouse/internal/infra/backing/sqlite":      true,
		"boardhouse/internal/infra/backing/postgres":    true,
		"boardhouse/internal/infra/backing/objectstore": true,
	}
	var found, unexpected []string
	for _, p := range pkgs {
		if p.Types == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			named, ok := p.Types.Scope().Lookup(name).Type().(*types.Named)
			if !ok {
				continue
			}
			if _, isStruct := named.Underlying().(*types.Struct); !isStruct {
				continue
			}
			if !types.Implements(types.NewPointer(named), driver) {
				continue
			}
			if allowed[p.PkgPath] {
				found = append(found, p.PkgPath)
			} else {
				unexpected = append(unexpected, p.PkgPath+"."+name)
			}
		}
	}
	if len(unexpected) > 0 {
		t.Fatalf("unexpected Driver implementations (extend the allowed list when adding a backend):\n%s", strings.Join(unexpected, "\n"))
	}
	if len(found) != len(allowed) {
		t.Fatalf("expected every backing package to provide a driver, found %v", found)
	}
}
