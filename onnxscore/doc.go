// Package onnxscore adapts exported TDT model graphs, run through ONNX
// Runtime, to the beam decoder's scoring contracts.
//
// A TDT checkpoint ships as three graphs: the acoustic encoder, the
// autoregressive prediction network, and the joint network. Engine
// opens one session per graph, discovers tensor names from the models
// themselves, and implements beam.Scorer on top: prediction-network
// recurrent state travels as packed LSTM h/c tensors, batch calls
// gather and scatter per-hypothesis rows, and Joint returns the fused
// raw logits (token segment with blank last, then the duration bins)
// for the search to normalize.
//
// The native runtime library must be loaded once per process before
// any session is created:
//
//	if err := onnxscore.Initialize(cfg.RuntimeLibrary); err != nil {
//		return err
//	}
//	defer onnxscore.Shutdown()
//
// Exported graphs are expected to follow the usual layouts: encoder
// (features [1,F,T], length [1]) to (encoded [1,E,T'], encoded length
// [1]); decoder (labels [B,1], h and c [L,B,H]) to (output rows, h, c);
// joint (one encoder frame, one decoder row) to raw logits. The joint
// must not normalize its output: the search owns temperature and
// log-softmax.
package onnxscore
