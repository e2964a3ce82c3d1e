package tree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSeqCollapsesEmptyAndSingleton(t *testing.T) {
	if got := Seq(); got != nil {
		t.Errorf("Seq() = %v, want nil", got)
	}
	m := Move{Dst: TempExpr{1}, Src: Const{1}}
	if got := Seq(m); got != Stmt(m) {
		t.Errorf("Seq(single) = %v, want %v unwrapped", got, m)
	}
}

func TestSeqNestsRight(t *testing.T) {
	a := ExprStmt{Const{1}}
	b := ExprStmt{Const{2}}
	c := ExprStmt{Const{3}}

	got := Seq(a, b, c)
	want := SeqStmt{a, SeqStmt{b, c}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Seq(a, b, c) mismatch (-want +got):\n%s", diff)
	}
}

func TestSeqSkipsNilStatements(t *testing.T) {
	a := ExprStmt{Const{1}}
	got := Seq(nil, a, nil)
	if got != Stmt(a) {
		t.Errorf("Seq(nil, a, nil) = %v, want %v", got, a)
	}
}

func TestRelOpNegateIsInvolution(t *testing.T) {
	rels := []RelOp{Eq, Ne, Lt, Gt, Le, Ge, Ult, Ule, Ugt, Uge}
	for _, r := range rels {
		if got := r.Negate().Negate(); got != r {
			t.Errorf("%v.Negate().Negate() = %v, want %v", r, got, r)
		}
	}
}

func TestRelOpNegateFlipsSense(t *testing.T) {
	cases := map[RelOp]RelOp{Eq: Ne, Lt: Ge, Le: Gt, Ult: Uge, Ule: Ugt}
	for in, want := range cases {
		if got := in.Negate(); got != want {
			t.Errorf("%v.Negate() = %v, want %v", in, got, want)
		}
	}
}
