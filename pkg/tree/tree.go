// Package tree defines the pre-canonical tree intermediate representation
// (spec.md §3.2): two mutually recursive sum types, Expr and Stmt, modeled
// as Go interfaces with unexported marker methods in the style the teacher
// uses for its own backend ASTs (pkg/rtl.Instruction, pkg/cminor.Expr).
package tree

import "github.com/tigerback/tigerc/pkg/temp"

// BinOp is an integer binary operator.
type BinOp int

const (
	Plus BinOp = iota
	Minus
	Mul
	Div
	And
	Or
	Xor
	Lshift
	Rshift
	ArShift
)

// RelOp is a comparison relation used by CJump.
type RelOp int

const (
	Eq RelOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
	Ult
	Ule
	Ugt
	Uge
)

// Negate returns the relation that holds exactly when rel does not
// (used by pkg/trace when a CJump's true-label, not its false-label,
// turns out to be the fall-through successor).
func (rel RelOp) Negate() RelOp {
	switch rel {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Gt:
		return Le
	case Le:
		return Gt
	case Ult:
		return Uge
	case Uge:
		return Ult
	case Ugt:
		return Ule
	case Ule:
		return Ugt
	}
	return rel
}

// Expr is a pre-canonical tree expression.
type Expr interface{ exprNode() }

// Const is an integer literal.
type Const struct{ Value int64 }

// Name is the address of a label.
type Name struct{ Label temp.Label }

// TempExpr reads the value of a temporary.
type TempExpr struct{ Temp temp.Temp }

// Bin combines two expressions with a binary operator.
type Bin struct {
	Op          BinOp
	Left, Right Expr
}

// Mem reads the word at the address given by Addr.
type Mem struct{ Addr Expr }

// Call invokes Fn with Args and yields its return value.
type Call struct {
	Fn   Expr
	Args []Expr
}

// Eseq evaluates Stmt for effect, then yields the value of Expr.
type Eseq struct {
	Stmt Stmt
	Expr Expr
}

func (Const) exprNode()    {}
func (Name) exprNode()     {}
func (TempExpr) exprNode() {}
func (Bin) exprNode()      {}
func (Mem) exprNode()      {}
func (Call) exprNode()     {}
func (Eseq) exprNode()     {}

// Stmt is a pre-canonical tree statement.
type Stmt interface{ stmtNode() }

// Move assigns the value of Src to Dst, which must be a TempExpr or a Mem
// (spec.md §3.2).
type Move struct{ Dst, Src Expr }

// ExprStmt evaluates Expr for its side effects and discards the result.
type ExprStmt struct{ Expr Expr }

// Jump transfers control to the address Target, which must evaluate to
// one of the labels listed in Targets (usually a single Name).
type Jump struct {
	Target  Expr
	Targets []temp.Label
}

// CJump transfers control to True if Left Op Right holds, otherwise to
// False.
type CJump struct {
	Op          RelOp
	Left, Right Expr
	True, False temp.Label
}

// SeqStmt sequences two statements. Canonicalization discards SeqStmt
// nodes entirely; this is the only Stmt form canonical output never
// contains (spec.md §3.3).
type SeqStmt struct{ First, Second Stmt }

// LabelStmt marks Label as the address of the following statement.
type LabelStmt struct{ Label temp.Label }

func (Move) stmtNode()     {}
func (ExprStmt) stmtNode() {}
func (Jump) stmtNode()     {}
func (CJump) stmtNode()    {}
func (SeqStmt) stmtNode()  {}
func (LabelStmt) stmtNode() {}

// Seq builds a right-nested SeqStmt chain from a statement list,
// collapsing empty and singleton inputs. nil represents "no statement."
func Seq(stmts ...Stmt) Stmt {
	var nonNil []Stmt
	for _, s := range stmts {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return SeqStmt{nonNil[0], Seq(nonNil[1:]...)}
	}
}
