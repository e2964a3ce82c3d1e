package block

import (
	"testing"

	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

func TestBuildStartsEveryBlockWithALabel(t *testing.T) {
	f := temp.NewFactory()
	t1 := f.NewTemp()
	stmts := []tree.Stmt{
		tree.Move{Dst: tree.TempExpr{Temp: t1}, Src: tree.Const{Value: 1}},
	}
	blocks := Build(stmts, f)
	for i, b := range blocks.Blocks {
		if _, ok := b[0].(tree.LabelStmt); !ok {
			t.Errorf("block %d does not start with a label: %#v", i, b[0])
		}
	}
}

func TestBuildEndsEveryNonFinalBlockWithAJump(t *testing.T) {
	f := temp.NewFactory()
	l1 := f.NewLabel()
	stmts := []tree.Stmt{
		tree.LabelStmt{Label: l1},
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 1}},
		// falls through to nothing explicit -- should gain a synthetic Jump.
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 2}},
	}
	blocks := Build(stmts, f)
	if len(blocks.Blocks) < 1 {
		t.Fatal("expected at least one block")
	}
	for i := 0; i < len(blocks.Blocks)-1; i++ {
		last := blocks.Blocks[i][len(blocks.Blocks[i])-1]
		switch last.(type) {
		case tree.Jump, tree.CJump:
		default:
			t.Errorf("block %d does not end with a jump: %#v", i, last)
		}
	}
}

func TestBuildSplitsOnLabelAndJump(t *testing.T) {
	f := temp.NewFactory()
	l1, l2 := f.NewLabel(), f.NewLabel()
	stmts := []tree.Stmt{
		tree.LabelStmt{Label: l1},
		tree.Jump{Target: tree.Name{Label: l2}, Targets: []temp.Label{l2}},
		tree.LabelStmt{Label: l2},
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 1}},
	}
	blocks := Build(stmts, f)
	// l1-block (label+jump), l2-block (label+move+synthetic jump to done) = 2 blocks.
	if len(blocks.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %#v", len(blocks.Blocks), blocks.Blocks)
	}
	if Label(blocks.Blocks[0]) != l1 {
		t.Errorf("first block label = %v, want %v", Label(blocks.Blocks[0]), l1)
	}
	if Label(blocks.Blocks[1]) != l2 {
		t.Errorf("second block label = %v, want %v", Label(blocks.Blocks[1]), l2)
	}
}

func TestBuildLastBlockEndsWithJumpToDone(t *testing.T) {
	f := temp.NewFactory()
	stmts := []tree.Stmt{
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 1}},
	}
	blocks := Build(stmts, f)
	last := blocks.Blocks[len(blocks.Blocks)-1]
	j, ok := last[len(last)-1].(tree.Jump)
	if !ok {
		t.Fatalf("last statement of last block is not a Jump: %#v", last[len(last)-1])
	}
	if len(j.Targets) != 1 || j.Targets[0] != blocks.Done {
		t.Errorf("last block's jump targets = %v, want [%v]", j.Targets, blocks.Done)
	}
}

func TestBuildHandlesEmptyInput(t *testing.T) {
	f := temp.NewFactory()
	blocks := Build(nil, f)
	if len(blocks.Blocks) != 1 {
		t.Fatalf("expected exactly one (synthetic) block for empty input, got %d", len(blocks.Blocks))
	}
}
