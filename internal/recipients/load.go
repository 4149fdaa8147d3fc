package recipients

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeRecords reads a JSON array of author records.
func DecodeRecords(r io.Reader) ([]AuthorRecord, error) {
	var records []AuthorRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode author records: %w", err)
	}
	return records, nil
}

// DecodeWorks reads a JSON array of works.
func DecodeWorks(r io.Reader) ([]Work, error) {
	var works []Work
	if err := json.NewDecoder(r).Decode(&works); err != nil {
		return nil, fmt.Errorf("decode works: %w", err)
	}
	return works, nil
}

// LoadFiles reads the records and works files used by the notify command.
func LoadFiles(recordsPath, worksPath string) ([]AuthorRecord, []Work, error) {
	rf, err := os.Open(recordsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open author records: %w", err)
	}
	defer rf.Close()
	records, err := DecodeRecords(rf)
	if err != nil {
		return nil, nil, err
	}

	wf, err := os.Open(worksPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open works: %w", err)
	}
	defer wf.Close()
	works, err := DecodeWorks(wf)
	if err != nil {
		return nil, nil, err
	}
	return records, works, nil
}
