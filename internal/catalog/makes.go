package catalog

import (
	_ "embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/drivebase/catalog-cli/internal/model"
)

//go:embed makes.yaml
var makesYAML []byte

var (
	makesOnce sync.Once
	makesList []model.MakePartition
	makesErr  error
)

// Makes returns the ordered partition table of known manufacturers.
func Makes() ([]model.MakePartition, error) {
	makesOnce.Do(func() {
		var doc struct {
			Makes []model.MakePartition `yaml:"makes"`
		}
		if err := yaml.Unmarshal(makesYAML, &doc); err != nil {
			makesErr = err
			return
		}
		makesList = doc.Makes
	})
	return makesList, makesErr
}

// SelectMakes builds the partition worklist. Explicit names take precedence
// over the skip/limit window and are matched case-insensitively against the
// partition table; names with no match are returned in unmatched for the
// caller to warn about. With no names, the worklist is the table sliced by
// skip and limit (limit <= 0 means no cap).
func SelectMakes(names []string, skip, limit int) (selected []model.MakePartition, unmatched []string, err error) {
	all, err := Makes()
	if err != nil {
		return nil, nil, err
	}

	if len(names) > 0 {
		for _, want := range names {
			found := false
			for _, m := range all {
				if strings.EqualFold(m.Name, want) {
					selected = append(selected, m)
					found = true
					break
				}
			}
			if !found {
				unmatched = append(unmatched, want)
			}
		}
		return selected, unmatched, nil
	}

	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return nil, nil, nil
	}
	end := len(all)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return all[skip:end], nil, nil
}
