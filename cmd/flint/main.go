// Package main provides the Flint IR engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/flint-ml/flint/device"
	"github.com/flint-ml/flint/ir"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("Flint IR engine %s\n", version)
		return
	}

	fmt.Println("Flint - Tensor Graph IR Engine")
	fmt.Printf("Version: %s\n\n", version)
	if err := demo(); err != nil {
		fmt.Fprintln(os.Stderr, "demo failed:", err)
		os.Exit(1)
	}
}

// demo builds a transposed matmul chain, shows the optimizer folding the
// transposes away, and plans memory for the result.
func demo() error {
	g := ir.NewGraph(device.NewHost())
	defer g.Close()

	a := g.AddTensor(ir.Shape{3, 2}, ir.Float32)
	b := g.AddTensor(ir.Shape{3, 5}, ir.Float32)

	at := g.AddTensor(ir.Shape{2, 3}, ir.Float32)
	if _, err := g.AddTranspose(a, at, []int{1, 0}); err != nil {
		return err
	}
	if _, err := g.AddMatMul(at, b, nil, false, false); err != nil {
		return err
	}

	fmt.Println("Before optimization:")
	fmt.Println(g)

	g.Optimize()
	if err := g.InferShapes(); err != nil {
		return err
	}

	fmt.Println("After optimization:")
	fmt.Println(g)

	if err := g.AllocateData(); err != nil {
		return err
	}
	fmt.Println("Memory plan:", g.Allocator())
	return nil
}
