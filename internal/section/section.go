package section

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Section 是页面中的一个区块。重新排序只改变 Order，不改变 ID。
type Section struct {
	ID       string
	Type     Type
	Order    int
	Settings Settings
}

type sectionJSON struct {
	ID       string          `json:"id"`
	Type     Type            `json:"type"`
	Order    int             `json:"order"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// MarshalJSON 输出 {id,type,order,settings}，未登记类型原样写回。
// TypeInvalid 占位区块把原始条目放在 settings 中写回。
func (s Section) MarshalJSON() ([]byte, error) {
	out := sectionJSON{ID: s.ID, Type: s.Type, Order: s.Order}
	switch settings := s.Settings.(type) {
	case nil:
	case *Unknown:
		out.Settings = settings.Raw
	default:
		raw, err := json.Marshal(settings)
		if err != nil {
			return nil, err
		}
		out.Settings = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON 通过 Default registry 解码配置，缺失的键回退到类型默认值。
// 结构不合法的条目不会报错，而是变成 TypeInvalid 占位区块。
func (s *Section) UnmarshalJSON(data []byte) error {
	*s = decodeEntry(data, 0)
	return nil
}

// DecodeList 解析保存的区块列表；空输入返回空列表。
// 只有列表本身不是 JSON 数组时才返回错误，单个坏条目不影响其余区块。
func DecodeList(raw []byte) ([]Section, error) {
	if len(raw) == 0 {
		return []Section{}, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(elems))
	for i, elem := range elems {
		sections = append(sections, decodeEntry(elem, i))
	}
	return sections, nil
}

// decodeEntry 逐个字段宽松解码一个条目。order 缺失或无法识别时使用 index。
func decodeEntry(elem json.RawMessage, index int) Section {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return invalidEntry(elem, index, "", index)
	}
	order := lenientOrder(fields["order"], index)
	var id string
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return invalidEntry(elem, index, "", order)
		}
	}
	var typ Type
	if err := json.Unmarshal(fields["type"], &typ); err != nil || typ == "" {
		return invalidEntry(elem, index, id, order)
	}
	return Section{
		ID:       id,
		Type:     typ,
		Order:    order,
		Settings: Default.Decode(typ, fields["settings"]),
	}
}

func invalidEntry(elem json.RawMessage, index int, id string, order int) Section {
	raw := make(json.RawMessage, len(elem))
	copy(raw, elem)
	if id == "" {
		id = fmt.Sprintf("invalid-%d", index)
	}
	return Section{
		ID:       id,
		Type:     TypeInvalid,
		Order:    order,
		Settings: &Unknown{TypeName: TypeInvalid, Raw: raw},
	}
}

// lenientOrder 接受整数、浮点数与数字字符串。
func lenientOrder(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			return v
		}
	}
	return fallback
}

// SortByOrder 按 Order 升序稳定排序，Order 相同时保留原有位置。
func SortByOrder(sections []Section) []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// ProductIDs 汇总一组区块引用到的全部商品 ID（去重，保持首次出现顺序）。
func ProductIDs(sections []Section) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, s := range sections {
		ref, ok := s.Settings.(ProductReferencer)
		if !ok {
			continue
		}
		for _, id := range ref.ProductRefs() {
			if id == 0 {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
