// btsc 行为树脚本工具：格式化、编译、反编译、检查与打包
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
