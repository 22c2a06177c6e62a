// Command growbufctl traces and benchmarks growbuf buffers.
package main

func main() {
	execute()
}
