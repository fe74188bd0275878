package vm_test

import (
	"testing"

	"vmforge.dev/n2t/pkg/vm"
)

func TestRender(t *testing.T) {
	cases := []struct {
		cmd  vm.Command
		want string
	}{
		{vm.Arithmetic{Op: vm.Add}, "add"},
		{vm.Push{Segment: vm.Local, Index: 3}, "push local 3"},
		{vm.Pop{Segment: vm.That, Index: 1}, "pop that 1"},
		{vm.Label{Name: "LOOP"}, "label LOOP"},
		{vm.Goto{Target: "LOOP"}, "goto LOOP"},
		{vm.IfGoto{Target: "LOOP"}, "if-goto LOOP"},
		{vm.Function{Name: "Main.fib", NLocals: 2}, "function Main.fib 2"},
		{vm.Call{Name: "Main.fib", NArgs: 1}, "call Main.fib 1"},
		{vm.Return{}, "return"},
		{vm.Empty{}, ""},
	}

	for _, tc := range cases {
		if got := vm.Render(tc.cmd); got != tc.want {
			t.Errorf("Render(%#v) = %q, want %q", tc.cmd, got, tc.want)
		}
	}
}
