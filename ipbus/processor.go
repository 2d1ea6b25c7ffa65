package ipbus

// Process drains every complete packet header and transaction currently
// sitting in c.Input, writing echoed headers and transaction responses to
// c.Output, until the input ring runs dry or holds only a partial
// transaction. It returns the total word count consumed from c.Input.
//
// The original implementation (ipbus_process_input_stream) did this by
// tail-recursing on itself once per item processed; since nothing bounds
// how many items one transport read can deliver, that recursion has no
// stack-depth guarantee. This is the explicit-loop rewrite spec.md §9
// Design Notes calls for: same state transitions, same per-item work,
// bounded stack.
func (c *Client) Process() (int, error) {
	total := 0
	for {
		state := Classify(c.Input, &c.Swapbytes)
		switch state {
		case StateFullTrans:
			n, err := Dispatch(c.Input, c.Output, c.Handler, c.Swapbytes)
			total += n
			if err != nil {
				return total, err
			}

		case StatePacket, StatePacketSwapped:
			headerWord := c.Input.ValueAtNet(0)
			c.Input.DeleteFront(1)
			if err := c.Output.PushBackNet(headerWord); err != nil {
				return total, err
			}
			total++

		case StateEmpty, StatePartialTrans:
			return total, nil
		}
	}
}
