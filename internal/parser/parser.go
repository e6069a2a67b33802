// Package parser implements the response-parse stage: reading staged
// worker-response files and flattening them into answer events.
package parser

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/pkg/types"
)

// responseDocument mirrors the wire format of a worker-response file:
// a top-level answers array of per-worker submissions.
type responseDocument struct {
	Answers []answerEntry `json:"answers"`
}

type answerEntry struct {
	SubmissionTime string `json:"submissionTime"`
	WorkerID       string `json:"workerId"`
	WorkerMetadata struct {
		IdentityData struct {
			IdentityProviderType string `json:"identityProviderType"`
			Issuer               string `json:"issuer"`
			Sub                  string `json:"sub"`
		} `json:"identityData"`
	} `json:"workerMetadata"`
}

// Parser reads staged response files into flat answer events.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// ParseAll discovers every worker-response file under root and returns
// one AnswerEvent per answer entry. Files are visited in sorted path
// order so repeated runs over an unchanged staging directory yield
// identical output. Malformed entries are skipped with a warning; a
// single bad submission must not block the count for everyone else.
func (p *Parser) ParseAll(root string) ([]types.AnswerEvent, error) {
	files, err := p.discover(root)
	if err != nil {
		return nil, err
	}

	var events []types.AnswerEvent
	for _, file := range files {
		events = append(events, p.parseFile(file)...)
	}
	return events, nil
}

// discover returns all response files under root in sorted order.
func (p *Parser) discover(root string) ([]types.ResponseFile, error) {
	var files []types.ResponseFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		files = append(files, types.ResponseFile{
			TaskID:    filepath.Base(filepath.Dir(path)),
			LocalPath: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].LocalPath < files[j].LocalPath
	})
	return files, nil
}

// parseFile extracts the events of a single response file. An
// unreadable or undecodable file is skipped entirely with a warning.
func (p *Parser) parseFile(file types.ResponseFile) []types.AnswerEvent {
	data, err := os.ReadFile(file.LocalPath)
	if err != nil {
		log.Printf("parse: skipping %v", errors.NewParseError(errors.CodeUnreadableFile,
			fmt.Sprintf("unreadable file %s", file.LocalPath), err))
		return nil
	}

	var doc responseDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("parse: skipping %v", errors.NewParseError(errors.CodeMalformedRecord,
			fmt.Sprintf("malformed file %s", file.LocalPath), err))
		return nil
	}

	events := make([]types.AnswerEvent, 0, len(doc.Answers))
	for i, answer := range doc.Answers {
		identity := answer.WorkerMetadata.IdentityData
		event := types.AnswerEvent{
			SubmissionTime:       answer.SubmissionTime,
			WorkerID:             answer.WorkerID,
			IdentityProviderType: identity.IdentityProviderType,
			Sub:                  identity.Sub,
			UserPoolID:           types.UserPoolFromIssuer(identity.Issuer),
		}

		if missing := missingFields(event); len(missing) > 0 {
			log.Printf("parse: skipping %v", errors.NewParseError(errors.CodeMalformedRecord,
				fmt.Sprintf("answer %d in %s: missing %s",
					i, file.LocalPath, strings.Join(missing, ", ")), nil))
			continue
		}
		events = append(events, event)
	}
	return events
}

// missingFields lists required fields absent from an event.
func missingFields(e types.AnswerEvent) []string {
	var missing []string
	if e.SubmissionTime == "" {
		missing = append(missing, "submissionTime")
	}
	if e.WorkerID == "" {
		missing = append(missing, "workerId")
	}
	if e.IdentityProviderType == "" {
		missing = append(missing, "identityProviderType")
	}
	if e.Sub == "" {
		missing = append(missing, "sub")
	}
	if e.UserPoolID == "" {
		missing = append(missing, "issuer")
	}
	return missing
}
