// Command schema-exporter writes the pipeline document JSON Schema so
// the frontend and CI can validate exported pipelines without talking
// to a running server. It can also check a document file directly.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Mohammedsanin/NeuroBlock/document"
)

func main() {
	outFile := flag.String("out", "./schemas/pipeline.v1.json", "Output path for the document schema")
	checkFile := flag.String("check", "", "Validate a pipeline document JSON file and exit")
	flag.Parse()

	if *checkFile != "" {
		if err := checkDocument(*checkFile); err != nil {
			log.Fatalf("❌ %s: %v", *checkFile, err)
		}
		log.Printf("✅ %s is a valid pipeline document", *checkFile)
		return
	}

	log.Printf("Schema Exporter")
	log.Printf("  Output: %s", *outFile)

	if err := writeSchema(*outFile); err != nil {
		log.Fatalf("Failed to write schema: %v", err)
	}

	log.Printf("  ✓ Generated: %s", *outFile)
	log.Printf("✅ Schema export complete!")
}

// writeSchema writes the document schema, indented, to the given path.
func writeSchema(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(document.Schema()), "", "  "); err != nil {
		return fmt.Errorf("indent schema: %w", err)
	}
	buf.WriteByte('\n')

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// checkDocument runs the full import validation, shape and domain rules
// both, against a document file.
func checkDocument(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := document.Parse(data); err != nil {
		return err
	}
	return nil
}
