package importer

import (
	"strings"

	"github.com/juanifmera/progresion/internal/model"
)

// DefaultComparableFlag 可比面积标记
const DefaultComparableFlag = "SC"

// JoinStats 左连接统计
type JoinStats struct {
	Rows         int `json:"rows"`
	Matched      int `json:"matched"`
	Unmatched    int `json:"unmatched"`
	DuplicateIDs int `json:"duplicateIds"` // 登记表中重复出现的编号（保留第一条）
}

// FilterStats 可比面积过滤统计
type FilterStats struct {
	Kept        int `json:"kept"`
	Unmatched   int `json:"unmatched"`   // 未匹配登记表
	MissingFlag int `json:"missingFlag"` // 登记表缺少该月标记
	OtherFlag   int `json:"otherFlag"`   // 标记不是可比面积
}

// Dropped 被过滤掉的总行数
func (s FilterStats) Dropped() int {
	return s.Unmatched + s.MissingFlag + s.OtherFlag
}

// IndexRegistry 按门店编号建立索引；重复编号保留第一条
func IndexRegistry(entries []model.RegistryEntry) (map[int]*model.RegistryEntry, int) {
	index := make(map[int]*model.RegistryEntry, len(entries))
	dups := 0
	for i := range entries {
		id := entries[i].StoreID
		if _, exists := index[id]; exists {
			dups++
			continue
		}
		index[id] = &entries[i]
	}
	return index, dups
}

// JoinRegistry 交易记录左连接登记表，保留全部交易行（顺序不变）
func JoinRegistry(facts []model.Fact, entries []model.RegistryEntry) ([]model.JoinedFact, JoinStats) {
	index, dups := IndexRegistry(entries)
	stats := JoinStats{Rows: len(facts), DuplicateIDs: dups}

	joined := make([]model.JoinedFact, len(facts))
	for i := range facts {
		joined[i].Fact = facts[i]
		if entry, ok := index[facts[i].StoreID]; ok {
			joined[i].Registry = entry
			stats.Matched++
		} else {
			stats.Unmatched++
		}
	}
	return joined, stats
}

// FilterComparable 只保留所选月份标记等于可比面积标记的行
func FilterComparable(rows []model.JoinedFact, month model.Month, flag string) ([]model.JoinedFact, FilterStats) {
	if flag == "" {
		flag = DefaultComparableFlag
	}
	flag = strings.ToUpper(flag)

	var stats FilterStats
	kept := make([]model.JoinedFact, 0, len(rows))
	for _, row := range rows {
		if !row.Matched() {
			stats.Unmatched++
			continue
		}
		v, ok := row.Registry.Flag(month)
		switch {
		case !ok:
			stats.MissingFlag++
		case v != flag:
			stats.OtherFlag++
		default:
			kept = append(kept, row)
		}
	}
	stats.Kept = len(kept)
	return kept, stats
}
