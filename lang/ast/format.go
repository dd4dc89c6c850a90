package ast

import (
	"fmt"
	"strings"
)

// format writes the one-line label of a node for the %v and %s verbs, the
// form the Printer emits one node per line. A width limits or pads the
// label ('-' pads on the right).
func format(f fmt.State, verb rune, n Node, label string) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}

	// replace tabs and newlines with the corresponding unicode key
	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")

	if w, ok := f.Width(); ok {
		minus := f.Flag('-')
		runes := []rune(label)
		if len(runes) >= w {
			runes = runes[:w]
		} else if minus {
			runes = append(runes, []rune(strings.Repeat(" ", w-len(runes)))...)
		} else {
			runes = append([]rune(strings.Repeat(" ", w-len(runes))), runes...)
		}
		label = string(runes)
	}
	fmt.Fprint(f, label)
}

func (n *Chunk) Format(f fmt.State, verb rune)   { format(f, verb, n, "chunk "+n.Name) }
func (n *Block) Format(f fmt.State, verb rune)   { format(f, verb, n, "block") }
func (n *Comment) Format(f fmt.State, verb rune) { format(f, verb, n, "comment "+n.Text) }

func (n *DeclStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "decl "+n.DeclType.String()) }
func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "exprstmt") }
func (n *IfStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "if") }
func (n *ForStmt) Format(f fmt.State, verb rune)  { format(f, verb, n, "for") }
func (n *ForInStmt) Format(f fmt.State, verb rune) {
	if n.Of {
		format(f, verb, n, "forof")
		return
	}
	format(f, verb, n, "forin")
}
func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while") }
func (n *FuncStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "function "+n.Name.Lit)
}
func (n *ReturnStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "return") }
func (n *BreakStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "break") }
func (n *ContinueStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "continue") }
func (n *ThrowStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "throw") }
func (n *TryStmt) Format(f fmt.State, verb rune)      { format(f, verb, n, "try") }
func (n *WithStmt) Format(f fmt.State, verb rune)     { format(f, verb, n, "with") }
func (n *BlockStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "blockstmt") }
func (n *BadStmt) Format(f fmt.State, verb rune)      { format(f, verb, n, "bad stmt") }
func (n *BadExpr) Format(f fmt.State, verb rune)      { format(f, verb, n, "bad expr") }

func (n *IdentExpr) Format(f fmt.State, verb rune) {
	label := "ident " + n.Lit
	// after resolution, show where the name was bound; the resolver's
	// Binding implements Stringer with its classification and index.
	if s, ok := n.Binding.(fmt.Stringer); ok {
		label += " (" + s.String() + ")"
	}
	format(f, verb, n, label)
}

func (n *LiteralExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "literal "+n.Type.String()+" "+n.Raw)
}

func (n *RegexpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "regexp /"+n.Pattern+"/"+n.Flags)
}

func (n *ArrayExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "array") }
func (n *MapExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "object") }
func (n *FuncExpr) Format(f fmt.State, verb rune) {
	label := "function"
	if n.Name != nil {
		label += " " + n.Name.Lit
	}
	format(f, verb, n, label)
}
func (n *UnaryOpExpr) Format(f fmt.State, verb rune) {
	label := "unary " + n.Type.GoString()
	if n.Postfix {
		label += " postfix"
	}
	format(f, verb, n, label)
}
func (n *BinOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "binary "+n.Type.GoString())
}
func (n *LogicalExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "logical "+n.Type.GoString())
}
func (n *CallExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "call") }
func (n *NewExpr) Format(f fmt.State, verb rune)  { format(f, verb, n, "new") }
func (n *DotExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "dot "+n.Right.Lit)
}
func (n *IndexExpr) Format(f fmt.State, verb rune)  { format(f, verb, n, "index") }
func (n *ParenExpr) Format(f fmt.State, verb rune)  { format(f, verb, n, "paren") }
func (n *AssignExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "assign "+n.Type.GoString()) }
func (n *ThisExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "this") }
