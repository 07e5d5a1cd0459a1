// Package manifest reads and rewrites the installer metadata manifest.
//
// The manifest is a flat TOML-like file made of [package] sections holding
// KEY = "value" lines. The package never parses the file structurally: it
// works on raw lines, locates sections and keys by scanning, and rewrites
// only the lines whose decoded value actually changes, so comments, blank
// lines and quoting style elsewhere in the file are preserved byte for byte.
//
// Usage:
//
//	store := manifest.NewStore(afero.NewOsFs())
//	doc, err := store.Load("metadata.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	facts := manifest.NewFacts()
//	facts.Set("VERSION", "1.2.0")
//	changes, err := doc.Apply("demo", facts)
package manifest
