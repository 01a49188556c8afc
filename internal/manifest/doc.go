// Package manifest holds the aggregated gallery manifest written to
// assets.json, and loads it back for verification.
//
// # Manifest Format
//
//	{
//		"category": ["birds", "insects"],
//		"data": [
//			{
//				"large":  {"src": "https://res.cloudinary.com/...", "width": 1024, "category": "birds"},
//				"medium": {"src": "https://res.cloudinary.com/...", "width": 640, "category": "birds"},
//				"small":  {"src": "https://res.cloudinary.com/...", "width": 320, "category": "birds"}
//			}
//		]
//	}
//
// Data holds one bundle per listed resource in encounter order. Category
// lists each category once, in first-appearance order.
//
// # Usage
//
//	m := manifest.New()
//	m.Add(bundle)
//
//	loaded, err := manifest.NewLoader().Load("assets/assets.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
package manifest
