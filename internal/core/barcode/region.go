package barcode

import (
	"fmt"
	"strconv"
	"strings"
)

type prefixRange struct {
	lo, hi int
}

// RegionPolicy 優先地區前綴政策；只影響信心標記，不會拒絕條碼
type RegionPolicy struct {
	ranges []prefixRange
}

// DefaultPriorityPrefixes 丹麥 GS1 前綴
var DefaultPriorityPrefixes = []string{"570-579"}

// NewRegionPolicy 解析 "570-579" 或 "590" 形式的前綴設定
func NewRegionPolicy(specs []string) (*RegionPolicy, error) {
	p := &RegionPolicy{}
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		loStr, hiStr, found := strings.Cut(s, "-")
		if !found {
			hiStr = loStr
		}
		lo, err := parsePrefix(loStr)
		if err != nil {
			return nil, fmt.Errorf("invalid prefix range %q: %w", s, err)
		}
		hi, err := parsePrefix(hiStr)
		if err != nil {
			return nil, fmt.Errorf("invalid prefix range %q: %w", s, err)
		}
		if hi < lo {
			return nil, fmt.Errorf("invalid prefix range %q: upper bound below lower bound", s)
		}
		p.ranges = append(p.ranges, prefixRange{lo: lo, hi: hi})
	}
	return p, nil
}

func parsePrefix(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return 0, fmt.Errorf("prefix must have 3 digits")
	}
	return strconv.Atoi(s)
}

// IsPriority 條碼前綴是否落在優先範圍內
func (p *RegionPolicy) IsPriority(b Barcode) bool {
	if p == nil || b.IsZero() {
		return false
	}
	n, err := strconv.Atoi(b.Prefix())
	if err != nil {
		return false
	}
	for _, r := range p.ranges {
		if n >= r.lo && n <= r.hi {
			return true
		}
	}
	return false
}
