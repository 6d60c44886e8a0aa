// Package numbering implements the thread-safe allocator that assigns
// 4-digit zero-padded study/series/image numbers.
package numbering

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

var fourDigitDir = regexp.MustCompile(`^\d{4}$`)

type seriesKey struct {
	studyUID  string
	seriesUID string
}

type imageKey struct {
	studyNumber  int
	seriesNumber int
	sopUID       string
}

// Allocator assigns numbers under a single mutex. No allocation is ever
// reversed once made; gaps from failed downstream steps are acceptable.
type Allocator struct {
	mu sync.Mutex

	basePath string

	studyCounter int
	studyNumbers map[string]int // StudyUID -> study number

	seriesNumbers map[seriesKey]int // (StudyUID, SeriesUID) -> series number
	seriesCounter map[int]int       // study number -> max series number assigned

	imageNumbers map[imageKey]int // (studyNum, seriesNum, SOPUID) -> image number
	imageCounter map[[2]int]int   // (studyNum, seriesNum) -> max image number assigned
}

// New returns an Allocator rooted at basePath. Call Recover once at startup
// to seed counters from any directories already on disk.
func New(basePath string) *Allocator {
	return &Allocator{
		basePath:      basePath,
		studyNumbers:  make(map[string]int),
		seriesNumbers: make(map[seriesKey]int),
		seriesCounter: make(map[int]int),
		imageNumbers:  make(map[imageKey]int),
		imageCounter:  make(map[[2]int]int),
	}
}

// Recover scans basePath for directories matching ^\d{4}$ and sets the
// study counter to the maximum observed. It returns
// the highest study number found, or 0 if none.
func (a *Allocator) Recover() (int, error) {
	entries, err := os.ReadDir(a.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("numbering: scan %s: %w", a.basePath, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	max := 0
	for _, e := range entries {
		if !e.IsDir() || !fourDigitDir.MatchString(e.Name()) {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	a.studyCounter = max
	return max, nil
}

// StudyNumber returns the number assigned to studyUID, assigning a new one
// on first sight.
func (a *Allocator) StudyNumber(studyUID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n, ok := a.studyNumbers[studyUID]; ok {
		return n
	}

	a.studyCounter++
	n := a.studyCounter
	a.studyNumbers[studyUID] = n
	return n
}

// SeriesNumber returns the number assigned to (studyUID, seriesUID) within
// studyNumber, assigning a new one on first sight by examining the existing
// directory tree for that study. The directory scan runs outside the lock;
// the assignment itself re-checks state after reacquiring it.
func (a *Allocator) SeriesNumber(studyNumber int, studyUID, seriesUID string) int {
	key := seriesKey{studyUID: studyUID, seriesUID: seriesUID}

	a.mu.Lock()
	if n, ok := a.seriesNumbers[key]; ok {
		a.mu.Unlock()
		return n
	}
	max, seeded := a.seriesCounter[studyNumber]
	a.mu.Unlock()

	if !seeded {
		max = a.maxChildDir(filepath.Join(a.basePath, fmt.Sprintf("%04d", studyNumber)))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another image of this study may have allocated while the lock was
	// released for the scan.
	if n, ok := a.seriesNumbers[key]; ok {
		return n
	}
	if cur, ok := a.seriesCounter[studyNumber]; ok {
		max = cur
	}
	next := max + 1
	a.seriesCounter[studyNumber] = next
	a.seriesNumbers[key] = next
	return next
}

// ImageNumber returns the number assigned to sopUID within
// (studyNumber, seriesNumber), starting at 1 and incrementing in
// reception/lock-acquisition order. Like SeriesNumber, the directory scan
// runs outside the lock.
func (a *Allocator) ImageNumber(studyNumber, seriesNumber int, sopUID string) int {
	key := imageKey{studyNumber: studyNumber, seriesNumber: seriesNumber, sopUID: sopUID}
	counterKey := [2]int{studyNumber, seriesNumber}

	a.mu.Lock()
	if n, ok := a.imageNumbers[key]; ok {
		a.mu.Unlock()
		return n
	}
	max, seeded := a.imageCounter[counterKey]
	a.mu.Unlock()

	if !seeded {
		max = a.maxChildFile(filepath.Join(a.basePath, fmt.Sprintf("%04d", studyNumber), fmt.Sprintf("%04d", seriesNumber)))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if n, ok := a.imageNumbers[key]; ok {
		return n
	}
	if cur, ok := a.imageCounter[counterKey]; ok {
		max = cur
	}
	next := max + 1
	a.imageCounter[counterKey] = next
	a.imageNumbers[key] = next
	return next
}

// maxChildDir returns the highest 4-digit directory name under dir, or 0.
func (a *Allocator) maxChildDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	max := 0
	for _, e := range entries {
		if !e.IsDir() || !fourDigitDir.MatchString(e.Name()) {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n > max {
			max = n
		}
	}
	return max
}

// maxChildFile returns the highest 4-digit "NNNN.dcm" file stem under dir,
// or 0.
func (a *Allocator) maxChildFile(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := e.Name()
		if ext := filepath.Ext(stem); ext != "" {
			stem = stem[:len(stem)-len(ext)]
		}
		if !fourDigitDir.MatchString(stem) {
			continue
		}
		if n, err := strconv.Atoi(stem); err == nil && n > max {
			max = n
		}
	}
	return max
}
