package conflict

import (
	"fmt"
	"sort"

	"github.com/loomctl/loom/internal/change"
)

// Detector classifies the semantic overlap between task snapshots of a single
// file. It is stateless and safe for concurrent use.
type Detector struct{}

// NewDetector creates a semantic conflict detector.
func NewDetector() *Detector {
	return &Detector{}
}

// locationChanges accumulates everything recorded at one location across tasks.
type locationChanges struct {
	tasks   map[string]struct{}
	taskIDs []string // insertion order
	types   []change.Type
}

// Detect produces one Region per location touched by more than one task.
// When several tasks touch the file at entirely distinct locations, a single
// file-level region is emitted instead: additive-only edits at distinct
// locations commute (severity NONE), anything else escalates. A file touched
// by exactly one task yields no regions: the pipeline resolves it as a direct
// copy without consulting the detector.
func (d *Detector) Detect(filePath string, snapshots []change.TaskSnapshot) []Region {
	byLocation := make(map[string]*locationChanges)
	var order []string
	taskCount := 0
	seenTasks := make(map[string]struct{})

	for _, snap := range snapshots {
		if _, ok := seenTasks[snap.TaskID]; !ok {
			seenTasks[snap.TaskID] = struct{}{}
			taskCount++
		}
		for _, c := range snap.Changes {
			lc, ok := byLocation[c.Location]
			if !ok {
				lc = &locationChanges{tasks: make(map[string]struct{})}
				byLocation[c.Location] = lc
				order = append(order, c.Location)
			}
			if _, seen := lc.tasks[snap.TaskID]; !seen {
				lc.tasks[snap.TaskID] = struct{}{}
				lc.taskIDs = append(lc.taskIDs, snap.TaskID)
			}
			lc.types = append(lc.types, c.ChangeType)
		}
	}

	var regions []Region
	for _, loc := range order {
		lc := byLocation[loc]
		if len(lc.taskIDs) < 2 {
			continue
		}
		regions = append(regions, d.classify(filePath, loc, lc))
	}

	if len(regions) == 0 && taskCount > 1 {
		if r, ok := d.classifyDistinct(filePath, snapshots); ok {
			regions = append(regions, r)
		}
	}
	return regions
}

// classifyDistinct handles the multi-task file whose tasks never share a
// location. Additive-only edits merge automatically; any modification or
// removal still escalates because reordering around it is not safe.
func (d *Detector) classifyDistinct(filePath string, snapshots []change.TaskSnapshot) (Region, bool) {
	var taskIDs []string
	seen := make(map[string]struct{})
	var types []change.Type
	additive := true

	for _, snap := range snapshots {
		if len(snap.Changes) == 0 {
			continue
		}
		if _, ok := seen[snap.TaskID]; !ok {
			seen[snap.TaskID] = struct{}{}
			taskIDs = append(taskIDs, snap.TaskID)
		}
		for _, c := range snap.Changes {
			types = append(types, c.ChangeType)
			if !c.ChangeType.IsAdditive() {
				additive = false
			}
		}
	}
	if len(taskIDs) < 2 {
		return Region{}, false
	}

	region := Region{
		FilePath:      filePath,
		Location:      change.LocationFileTop,
		TasksInvolved: taskIDs,
		ChangeTypes:   uniqueTypes(types),
	}

	if additive {
		region.Severity = SeverityNone
		region.CanAutoMerge = true
		region.MergeStrategy = dominantAdditiveStrategy(types)
		region.Reason = fmt.Sprintf("%d tasks made additive-only changes at distinct locations", len(taskIDs))
	} else {
		region.Severity = SeverityMedium
		region.CanAutoMerge = false
		region.MergeStrategy = StrategyAIRequired
		region.Reason = fmt.Sprintf("non-additive changes from %d tasks in the same file", len(taskIDs))
	}
	return region, true
}

// classify applies the severity policy to one contested location.
func (d *Detector) classify(filePath, location string, lc *locationChanges) Region {
	region := Region{
		FilePath:      filePath,
		Location:      location,
		TasksInvolved: lc.taskIDs,
		ChangeTypes:   uniqueTypes(lc.types),
	}

	additive := true
	destructive := false
	for _, t := range lc.types {
		if !t.IsAdditive() {
			additive = false
		}
		if t.IsRemove() {
			destructive = true
		}
	}

	switch {
	case additive:
		region.Severity = SeverityLow
		region.CanAutoMerge = true
		region.MergeStrategy = dominantAdditiveStrategy(lc.types)
		region.Reason = fmt.Sprintf("%d tasks made additive-only changes at %s", len(lc.taskIDs), location)
	case destructive:
		region.Severity = SeverityHigh
		region.CanAutoMerge = false
		region.MergeStrategy = StrategyAIRequired
		region.Reason = fmt.Sprintf("removal at %s overlaps changes from %d tasks", location, len(lc.taskIDs))
	default:
		region.Severity = SeverityMedium
		region.CanAutoMerge = false
		region.MergeStrategy = StrategyAIRequired
		region.Reason = fmt.Sprintf("modification at %s overlaps changes from %d tasks", location, len(lc.taskIDs))
	}
	return region
}

// dominantAdditiveStrategy picks the append strategy matching the most common
// additive change type. Functions and methods get structural insertion;
// everything else additive falls through to plain statement appends. Ties
// resolve to statement appends, which carry every additive change regardless
// of kind.
func dominantAdditiveStrategy(types []change.Type) MergeStrategy {
	counts := make(map[MergeStrategy]int)
	for _, t := range types {
		switch t {
		case change.AddFunction:
			counts[StrategyAppendFunctions]++
		case change.AddMethod:
			counts[StrategyAppendMethods]++
		default:
			counts[StrategyAppendStatements]++
		}
	}

	best := StrategyAppendStatements
	bestCount := counts[StrategyAppendStatements]
	for _, s := range []MergeStrategy{StrategyAppendFunctions, StrategyAppendMethods} {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best
}

func uniqueTypes(types []change.Type) []change.Type {
	seen := make(map[change.Type]struct{}, len(types))
	var out []change.Type
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
