package render

import (
	"html"
	"io"
	"sort"
	"strings"
)

// Node 是渲染结果中的一个元素节点。HTML 字段只接受已经过净化的片段。
type Node struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

var voidElements = map[string]bool{
	"img": true, "input": true, "br": true, "hr": true, "source": true, "meta": true,
}

func el(tag, class string, children ...*Node) *Node {
	n := &Node{Tag: tag}
	if class != "" {
		n.Attrs = map[string]string{"class": class}
	}
	for _, child := range children {
		if child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

func text(tag, class, value string) *Node {
	n := el(tag, class)
	n.Text = value
	return n
}

// textIf 在 value 为空时返回 nil，el 会跳过 nil 子节点。
func textIf(tag, class, value string) *Node {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return text(tag, class, value)
}

func (n *Node) attr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	n.Attrs[key] = value
	return n
}

func (n *Node) append(children ...*Node) *Node {
	for _, child := range children {
		if child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

// WriteHTML 把节点树序列化为 HTML。文本与属性值都会转义。
func WriteHTML(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	var b strings.Builder
	writeNode(&b, n)
	_, err := io.WriteString(w, b.String())
	return err
}

// String 返回节点的 HTML 表示。
func (n *Node) String() string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.Tag == "" {
		b.WriteString(html.EscapeString(n.Text))
		b.WriteString(n.HTML)
		for _, child := range n.Children {
			writeNode(b, child)
		}
		return
	}

	b.WriteByte('<')
	b.WriteString(n.Tag)
	keys := make([]string, 0, len(n.Attrs))
	for key := range n.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(n.Attrs[key]))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidElements[n.Tag] {
		return
	}

	b.WriteString(html.EscapeString(n.Text))
	b.WriteString(n.HTML)
	for _, child := range n.Children {
		writeNode(b, child)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
